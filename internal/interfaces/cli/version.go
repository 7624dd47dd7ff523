package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-LongDoc/pkg/client"
)

type versionInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	SDKVersion string `json:"sdk_version"`
}

func (v versionInfo) Text() string {
	return fmt.Sprintf("longdoc %s\n  commit: %s\n  built:  %s\n  go:     %s\n  sdk:    %s\n",
		v.Version, v.GitCommit, v.BuildDate, v.GoVersion, v.SDKVersion)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, versionInfo{
				Version:    Version,
				GitCommit:  GitCommit,
				BuildDate:  BuildDate,
				GoVersion:  runtime.Version(),
				SDKVersion: client.Version,
			})
		},
	}
}

//Personal.AI order the ending
