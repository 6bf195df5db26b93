package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vitalvas/yoke/view"
	"gopkg.in/yaml.v3"
)

func renderCmd() *cobra.Command {
	var (
		dir         string
		dataPath    string
		placeholder bool
	)

	cmd := &cobra.Command{
		Use:   "render <name>",
		Short: "Render a template to stdout",
		Long: `Render a template from the views directory with data read from a
YAML file. Use --placeholder for ${name} substitution templates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]any{}
			if dataPath != "" {
				raw, err := os.ReadFile(dataPath)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(raw, &data); err != nil {
					return fmt.Errorf("decode %s: %w", dataPath, err)
				}
			}

			loader := view.NewFSLoader(os.DirFS(dir))
			engine := view.New(loader)
			if placeholder {
				engine = view.NewPlaceholderEngine(loader)
			}

			out, err := engine.Render(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "views", "v", "views", "Directory holding the templates")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML file with the template data")
	cmd.Flags().BoolVar(&placeholder, "placeholder", false, "Render with the placeholder engine")

	return cmd
}
