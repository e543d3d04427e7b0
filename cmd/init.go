package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marcus/tally/internal/config"
	"github.com/marcus/tally/internal/db"
	"github.com/marcus/tally/internal/output"
	"github.com/marcus/tally/internal/streak"
)

// initAnswers are the settings chosen during `tally init`.
type initAnswers struct {
	Key             string
	FreezeThreshold string
}

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize tally in this directory",
	Long:    `Creates the local .tally directory, its SQLite database and config.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if db.Exists(baseDir) {
			output.Warning(".tally/ already exists")
			return nil
		}

		answers := initAnswers{
			Key:             config.GetDefaultKey(baseDir),
			FreezeThreshold: strconv.Itoa(streak.DefaultFreezeThreshold),
		}
		if k, _ := cmd.Flags().GetString(keyFlag); k != "" {
			answers.Key = k
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
			if err := initForm(&answers).Run(); err != nil {
				return err
			}
		}

		if err := initialize(baseDir, answers); err != nil {
			output.Error("%v", err)
			return err
		}

		fmt.Println("INITIALIZED .tally/")
		fmt.Printf("Default streak: %s\n", answers.Key)

		if _, err := os.Stat(filepath.Join(baseDir, ".git")); err == nil {
			addToGitignore(filepath.Join(baseDir, ".gitignore"))
		}
		return nil
	},
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default streak key").
				Description("Letters, digits, '-' or '_'").
				Value(&a.Key).
				Validate(func(s string) error {
					_, err := streak.NormalizeKey(s)
					return err
				}),
			huh.NewInput().
				Title("Completions in one day that earn a freeze").
				Value(&a.FreezeThreshold).
				Validate(func(s string) error {
					_, err := parseThreshold(s)
					return err
				}),
		),
	)
}

// initialize creates the database and writes the chosen settings.
func initialize(baseDir string, a initAnswers) error {
	key, err := streak.NormalizeKey(a.Key)
	if err != nil {
		return err
	}
	threshold, err := parseThreshold(a.FreezeThreshold)
	if err != nil {
		return err
	}

	database, err := db.Initialize(baseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := config.SetDefaultKey(baseDir, key); err != nil {
		return err
	}
	if err := config.RegisterKey(baseDir, key); err != nil {
		return err
	}
	if threshold != streak.DefaultFreezeThreshold {
		return config.SetFreezeThreshold(baseDir, threshold)
	}
	return nil
}

func parseThreshold(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: freeze threshold must be a positive integer, got %q", errInvalidInput, s)
	}
	return n, nil
}

func addToGitignore(path string) {
	content, _ := os.ReadFile(path)
	if strings.Contains(string(content), ".tally/") {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		f.WriteString("\n")
	}
	f.WriteString(".tally/\n")
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("yes", "y", false, "Skip the interactive setup and use defaults")
}
