package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/limistah/heimdal/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/limistah/heimdal/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/limistah/heimdal/internal/version.Date={{.Date}}
)
