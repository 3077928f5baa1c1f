package filehashlist

// InitDebugFlags initialises debug flags - for CLI compatibility
func InitDebugFlags(flagsStr string) {
	if flagsStr != "" {
		SetDebugFlags(flagsStr)
	}
}

// ApplyVerboseConfig sets the verbose level and debug flags from the
// configuration unless the command line already set them
func ApplyVerboseConfig(cfg *Config, cliLevel int, cliDebug string) {
	vc := cfg.GetVerboseConfig()
	level := vc.Level
	if cliLevel > 0 {
		level = cliLevel
	}
	SetVerboseLevel(level)

	debug := vc.Debug
	if cliDebug != "" {
		debug = cliDebug
	}
	InitDebugFlags(debug)
	if debug != "" {
		VerboseLog(1, "Debug flags: %s", debug)
	}
}

// RunOptionsFromConfig fills the tunables of a run from the configuration.
// Root, cache and output are left to the caller.
func RunOptionsFromConfig(cfg *Config) (RunOptions, error) {
	all := cfg.GetAllConfig()

	algorithm, err := GetHashAlgorithm(all.Hash.Default)
	if err != nil {
		return RunOptions{}, err
	}
	bufferSize, err := ParseHumanSize(all.Performance.HashBuffer)
	if err != nil {
		return RunOptions{}, err
	}

	return RunOptions{
		Scan: ScanOptions{
			FollowLinks: all.Scan.FollowLinks,
			Excludes:    all.Scan.Exclude,
			IgnoreFile:  all.Scan.IgnoreFile,
		},
		Pipeline: PipelineOptions{
			Workers:    all.Performance.HashWorkers,
			Algorithm:  algorithm,
			BufferSize: bufferSize,
		},
		QueueSize:     all.Performance.QueueSize,
		ProgressEvery: all.Progress.Every,
	}, nil
}
