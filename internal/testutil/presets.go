package testutil

// WithStandardPatterns adds the standard fixture set:
//
//	groove  110 BPM, four-on-the-floor kick, offbeat hats
//	bassline  a two-note acid line with an accent and a slide
func (b *Builder) WithStandardPatterns() *Builder {
	return b.
		WithPattern("groove",
			BPM(110),
			Mask("kick", "x...x...x...x..."),
			Mask("hihat", "..x...x...x...x.")).
		WithPattern("bassline",
			BPM(126), Swing(20),
			Note("bass", 0, "C2", Accent()),
			Note("bass", 6, "D#2", Slide(), Velocity(0.6)))
}
