package deps

import (
	"context"

	"podcut/internal/config"
)

// Requirements lists the binaries podcut needs for cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Engine.FFmpegBinary,
			Description: "Required to apply cuts",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Engine.FFprobeBinary,
			Description: "Required to read audio duration",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
	}
}

// CheckMedia reports the availability of the media binaries from cfg.
func CheckMedia(ctx context.Context, cfg *config.Config) []Status {
	return CheckBinaries(ctx, Requirements(cfg))
}
