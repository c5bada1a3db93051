package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMixer(t *testing.T, path string) MixerConfig {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	var m MixerConfig
	require.NoError(t, v.UnmarshalKey("mixer", &m))
	return m
}

func TestSaveMixer_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".haos", "config.yaml")

	mixer := DefaultMixer()
	require.NoError(t, SaveMixer(configPath, mixer))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mixer:")
	assert.Contains(t, string(data), "drum_machine:")

	require.Equal(t, mixer, readMixer(t, configPath))
}

func TestSaveMixer_PreservesOtherSections(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600))

	mixer := DefaultMixer()
	mixer.Master = 0.5
	mixer.DrumMachine = "909"
	mixer.Volumes["hihat"] = 0.25
	require.NoError(t, SaveMixer(configPath, mixer))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Audio engine peer.")
	assert.Contains(t, content, "# Step sequencer.")
	assert.Contains(t, content, "swing: 0")
	assert.Contains(t, content, "# reload patterns when files change")

	require.Equal(t, mixer, readMixer(t, configPath))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, 120.0, cfg.Sequencer.BPM)
	assert.Equal(t, "lowpass", cfg.Effects.FilterType)
}

func TestSaveMixer_AppendsMissingSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# tempo only
sequencer:
  bpm: 133
`
	require.NoError(t, os.WriteFile(configPath, []byte(initial), 0o600))

	require.NoError(t, SaveMixer(configPath, DefaultMixer()))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# tempo only")
	assert.Contains(t, string(data), "bpm: 133")
	require.Equal(t, DefaultMixer(), readMixer(t, configPath))
}

func TestSaveMixer_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("mixer: [unclosed"), 0o600))

	err := SaveMixer(configPath, DefaultMixer())
	require.ErrorContains(t, err, "parsing config")
}

func TestSaveMixer_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveMixer(configPath, DefaultMixer()))
	require.NoError(t, SaveMixer(configPath, DefaultMixer()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
