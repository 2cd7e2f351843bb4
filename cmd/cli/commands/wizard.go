package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/wizard"
	"github.com/spf13/cobra"
)

func intArg(args []string, name string) (int, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, args[0])
	}
	return n, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the wizard state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := apiClient.State(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if v.HackathonName != "" {
				fmt.Fprintf(out, "Hackathon: %s\n", v.HackathonName)
			}
			for _, s := range v.Steps {
				fmt.Fprintln(out, stepLine(s))
			}
			if v.Progress != nil {
				fmt.Fprintf(out, "Guide progress: %d/%d\n", len(v.Progress.Completed), v.Progress.Total)
			}
			return nil
		},
	}
}

func stepLine(s wizard.StepView) string {
	mark := " "
	switch {
	case s.Active:
		mark = ">"
	case !s.Unlocked:
		mark = "x"
	}
	return fmt.Sprintf("%s %d. %s: %s", mark, s.Number, s.Title, s.Description)
}

func stepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step <1-5>",
		Short: "Go to a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := intArg(args, "step")
			if err != nil {
				return err
			}
			v, err := apiClient.SelectStep(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Now on step %d\n", v.ActiveStep)
			return nil
		},
	}
}

func continueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continue",
		Short: "Move past the execution plan or build guide",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := apiClient.Continue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Now on step %d\n", v.ActiveStep)
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var name, rules, rulesFile string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a hackathon's rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rulesFile != "" {
				b, err := os.ReadFile(rulesFile)
				if err != nil {
					return err
				}
				rules = string(b)
			}
			h, err := apiClient.AnalyzeHackathon(cmd.Context(), types.HackathonRequest{Name: name, Rules: rules})
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), h)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "hackathon name")
	cmd.Flags().StringVarP(&rules, "rules", "r", "", "rules text")
	cmd.Flags().StringVarP(&rulesFile, "rules-file", "f", "", "read the rules from a file")
	return cmd
}

func ideasCmd() *cobra.Command {
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "ideas",
		Short: "List project ideas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ideas, err := apiClient.Ideas(cmd.Context(), regenerate)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, idea := range ideas {
				fmt.Fprintf(out, "[%d] %s (%s, %s)\n    %s\n", i, idea.Name, idea.Difficulty, idea.EstimatedTime, idea.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "ask for fresh ideas")
	return cmd
}

func selectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <index>",
		Short: "Choose a project idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := intArg(args, "index")
			if err != nil {
				return err
			}
			p, err := apiClient.SelectIdea(cmd.Context(), i)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", p.Name)
			return nil
		},
	}
}

type planView struct {
	Version int           `yaml:"version"`
	Nodes   []models.Node `yaml:"nodes"`
	Edges   []models.Edge `yaml:"edges"`
}

func planCmd() *cobra.Command {
	var regenerate, save, history bool
	var restore int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if history {
				versions, err := apiClient.ArchitectureVersions(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, a := range versions {
					mark := " "
					if a.IsCurrent {
						mark = "*"
					}
					fmt.Fprintf(out, "%s v%d  %d nodes  %s\n", mark, a.Version, len(a.Nodes), a.CreatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			}

			var a models.ProjectArchitecture
			var err error
			switch {
			case save:
				a, err = apiClient.SaveArchitecture(cmd.Context())
			case restore > 0:
				a, err = apiClient.RestoreArchitecture(cmd.Context(), restore)
			default:
				a, err = apiClient.Architecture(cmd.Context(), regenerate)
			}
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), planView{Version: a.Version, Nodes: a.Nodes, Edges: a.Edges})
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "generate a new version")
	cmd.Flags().BoolVar(&save, "save", false, "retry saving a plan whose save failed")
	cmd.Flags().BoolVar(&history, "history", false, "list saved versions")
	cmd.Flags().IntVar(&restore, "restore", 0, "make this saved version current again")
	cmd.MarkFlagsMutuallyExclusive("regenerate", "save", "history", "restore")
	return cmd
}

func guideCmd() *cobra.Command {
	var regenerate, save bool
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Show the build guide",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var g wizard.Guide
			var err error
			if save {
				g, err = apiClient.SaveGuide(cmd.Context())
			} else {
				g, err = apiClient.Guide(cmd.Context(), regenerate)
			}
			if err != nil {
				return err
			}
			done := map[int]bool{}
			for _, i := range g.Progress.Completed {
				done[i] = true
			}
			out := cmd.OutOrStdout()
			for i, s := range g.Steps {
				box := "[ ]"
				if done[i] {
					box = "[x]"
				}
				fmt.Fprintf(out, "%s %d. %s\n", box, i, s.Title)
			}
			fmt.Fprintf(out, "%d of %d complete\n", len(g.Progress.Completed), g.Progress.Total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "generate a new guide")
	cmd.Flags().BoolVar(&save, "save", false, "retry saving a guide whose save failed")
	cmd.MarkFlagsMutuallyExclusive("regenerate", "save")
	return cmd
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <index>",
		Short: "Mark a guide step done or not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := intArg(args, "index")
			if err != nil {
				return err
			}
			p, err := apiClient.ToggleStep(cmd.Context(), i)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d complete\n", len(p.Completed), p.Total)
			return nil
		},
	}
}

func finishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish",
		Short: "Finish the build guide and move to deployment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := apiClient.FinishGuide(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "On to deployment")
			return nil
		},
	}
}

func deployCmd() *cobra.Command {
	var complete bool
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Show deployment guidance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if complete {
				ack, err := apiClient.CompleteDeployment(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ack.Message)
				return nil
			}
			g, err := apiClient.Deployment(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), g)
		},
	}
	cmd.Flags().BoolVar(&complete, "complete", false, "mark the project as published")
	return cmd
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the plan as YAML",
		Long:  "Without --output the export is requested. With --output the rendered document is downloaded.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				st, err := apiClient.RequestExport(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Export %s\n", st.State)
				return nil
			}
			doc, err := apiClient.DownloadExport(cmd.Context())
			if err != nil {
				return err
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			return os.WriteFile(output, doc, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "download to this file, - for stdout")
	return cmd
}
