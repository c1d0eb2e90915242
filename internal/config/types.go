package config

// CopyFile is a single host-to-container file copy performed during prepare.
// Src is resolved relative to the root configuration file's directory.
type CopyFile struct {
	Src  string `yaml:"src" json:"src"`
	Dest string `yaml:"dest" json:"dest"`
}

// Prepare lists the steps both sessions run before the main operation.
type Prepare struct {
	CopyFiles []CopyFile `yaml:"copy_files" json:"copy_files,omitempty"`
	Commands  []string   `yaml:"commands" json:"commands,omitempty"`
}

// MainOperation is the operation under test, run only in the "after" session.
type MainOperation struct {
	Commands []string `yaml:"commands" json:"commands,omitempty"`
}

// CommandDiff pairs a command to run in both sessions with a logical output
// file name used to label its diff in the report.
type CommandDiff struct {
	Command string `yaml:"command" json:"command"`
	Outfile string `yaml:"outfile" json:"outfile"`
}

// Config is the fully resolved configuration for one envdiff run.
type Config struct {
	BaseImage     string        `yaml:"base_image"`
	Prepare       Prepare       `yaml:"prepare"`
	MainOperation MainOperation `yaml:"main_operation"`
	TargetDirs    []string      `yaml:"target_dirs"`
	ExcludePaths  []string      `yaml:"exclude_paths"`
	OmitDiffPaths []string      `yaml:"omit_diff_paths"`
	CommandDiff   []CommandDiff `yaml:"command_diff"`
	Title         string        `yaml:"title"`
	Description   string        `yaml:"description"`

	// Raw is the resolved document as a generic map, with extends already
	// consumed. Unknown keys survive here verbatim so the report's
	// definitions section stays forward-compatible.
	Raw map[string]any `yaml:"-"`

	// Dir is the directory of the root configuration file. Relative
	// prepare.copy_files sources resolve against it.
	Dir string `yaml:"-"`
}
