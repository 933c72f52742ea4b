package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/stasher/pkg/ui"
)

var configShow bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the stasher configuration file",
	Long: `Open the configuration file in $EDITOR.

With --show the effective configuration (file, .env and STASHER_*
variables combined) is printed instead.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShow, "show", false, "Print the effective configuration")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configShow {
		data, err := yaml.Marshal(appConfig)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	path := appVault.ConfigPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := appConfig.Save(path); err != nil {
			return err
		}
	}

	fmt.Println(ui.FormatInfo("Opening config: " + path))

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
