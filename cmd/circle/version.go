package main

import (
	"fmt"
	"runtime"

	"github.com/calehh/circle-app/types"
	cmtversion "github.com/cometbft/cometbft/version"
	"github.com/spf13/cobra"
)

// GitCommit is set with -ldflags at build time.
var GitCommit string

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

func VersionWithCommit(gitCommit string) string {
	if len(gitCommit) >= 8 {
		return Version + "-" + gitCommit[:8]
	}
	return Version
}

var versionLong bool

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the version",
	Aliases: []string{"V"},
	Args:    cobra.NoArgs,
	Run:     versionRun,
}

func init() {
	versionCmd.Flags().BoolVarP(&versionLong, "long", "l", false, "also print the cometbft, abci and go versions")
}

func versionRun(cmd *cobra.Command, args []string) {
	fmt.Println(types.AppName, VersionWithCommit(GitCommit))
	if versionLong {
		fmt.Println("cometbft:", cmtversion.TMCoreSemVer)
		fmt.Println("abci:", cmtversion.ABCIVersion)
		fmt.Println("go:", runtime.Version())
	}
}
