package helper

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/tzstamp/tzstamp/command"
)

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// RegisterLogLevelFlag registers the --log-level setting for all child commands
func RegisterLogLevelFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		command.LogLevelFlag,
		command.DefaultLogLevel,
		"the log level for console output",
	)
}

// GetLogLevel returns the log level flag value of cmd
func GetLogLevel(cmd *cobra.Command) string {
	flag := cmd.Flag(command.LogLevelFlag)
	if flag == nil {
		return command.DefaultLogLevel
	}

	return flag.Value.String()
}

// NewLogger creates the root logger for a command
func NewLogger(name, level string, jsonFormat bool) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		Output:     os.Stderr,
		JSONFormat: jsonFormat,
	})
}

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}

// ProofFileName returns the proof file path for a stamped file
func ProofFileName(path string) string {
	return path + command.ProofFileSuffix
}

// TrimProofSuffix returns the stamped file path for a proof file path
func TrimProofSuffix(path string) string {
	return strings.TrimSuffix(path, command.ProofFileSuffix)
}
