package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Konard/problem-solving/internal/state"
)

var (
	initForce      bool
	initWithConfig bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a psolve project",
	Long: `Initialize a directory for use with psolve.

This command sets up everything needed to run psolve:
  - Creates the .psolve directory structure
  - Initializes the run state database
  - Optionally creates a project configuration file

The directory argument is optional and defaults to the current directory.

Examples:
  psolve init                # Initialize current directory
  psolve init ./myproject    # Initialize specific directory
  psolve init --force        # Reinitialize even if already set up
  psolve init --with-config  # Create a .psolve.yaml template`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create a .psolve.yaml template")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing psolve in %s...\n\n", absPath)

	psolveDir := filepath.Join(absPath, ".psolve")
	if _, err := os.Stat(psolveDir); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, sub := range []string{"logs", "signals"} {
		dir := filepath.Join(psolveDir, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s directory: %w", dir, err)
		}
	}
	printStatus("✓", "Created .psolve directory structure", color.FgGreen)

	store, err := state.OpenProject(absPath)
	if err != nil {
		return fmt.Errorf("creating state database: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrating state database: %w", err)
	}
	printStatus("✓", "Initialized run state database", color.FgGreen)

	if err := updateGitignore(absPath); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	printStatus("✓", "Updated .gitignore with psolve entries", color.FgGreen)

	if initWithConfig {
		if err := createProjectConfig(absPath); err != nil {
			return fmt.Errorf("creating project config: %w", err)
		}
		printStatus("✓", "Created .psolve.yaml template", color.FgGreen)
	}

	fmt.Printf("\n%s psolve initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if apiKey == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Run a task:")
	fmt.Println("     psolve run \"your task here\"")
	fmt.Println("     # or: psolve run --dry-run \"try it without an API key\"")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     psolve --help")

	return nil
}

// updateGitignore adds psolve entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	psolveEntries := []string{
		".psolve/",
		"psolve",
	}

	needsUpdate := false
	for _, entry := range psolveEntries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}

	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)

	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}

	newContent.WriteString("\n# psolve\n")
	for _, entry := range psolveEntries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// createProjectConfig creates a .psolve.yaml template
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".psolve.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil // Already exists, don't overwrite
	}

	template := `# psolve Project Configuration
# This file overrides defaults from ~/.config/psolve/config.yaml

# anthropic:
#   model: claude-sonnet-4-20250514

# defaults:
#   tracker: dryrun
#   max_attempts: 3
#   concurrency: 2
#   freeform_merge: false

# search:
#   rules_path: .psolve/rules.yaml

# timeouts:
#   run: 30m
#   tracker: 30s
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
