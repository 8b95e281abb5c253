package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lunahost/luna/internal/scripting"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file|dir]...",
		Short: "Compile plugin scripts without running them",
		Long:  "Check parses and compiles every plugin script given, or the configured plugins directory when none is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				args = []string{cfg.Dirs.Plugins}
			}
			files, err := scriptFiles(args)
			if err != nil {
				return err
			}
			failed := 0
			for _, f := range files {
				if _, err := scripting.Compile(f); err != nil {
					printFail(err.Error())
					failed++
					continue
				}
				printOK(f)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed to compile", failed, len(files))
			}
			return nil
		},
	}
}

// scriptFiles expands directories into the .luac and .lua files they hold.
func scriptFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case scripting.Extension, scripting.SourceExtension:
				if e.Type().IsRegular() {
					files = append(files, filepath.Join(arg, e.Name()))
				}
			}
		}
	}
	return files, nil
}
