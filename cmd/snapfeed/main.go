package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"snapfeed/internal/app"
	"snapfeed/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a SnapApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddSnap", "ListSnaps").
func newApp(operation string) (*app.SnapApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSnapApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "snapfeed",
	Short: "Snap posting and viewing store",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Printf("Uploads:  %s\n", cfg.Uploads.Dir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Database type: %s\n", cfg.Database.Type)
		fmt.Printf("Database path: %s\n", cfg.Database.Path)
		fmt.Printf("Uploads dir:   %s\n", cfg.Uploads.Dir)
		fmt.Printf("Log dir:       %s\n", cfg.LogDir)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		if err := app.Migrate(cfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Printf("Database %s is up to date\n", cfg.Database.Path)
		return nil
	},
}

// snap commands
var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Manage snaps",
}

var (
	addCaption  string
	addHashtags string
	addLocation string
)

var snapAddCmd = &cobra.Command{
	Use:   "add <username> <image>",
	Short: "Post a new snap",
	Long: `Post a new snap for a user, creating the user if needed.
When <image> is a readable file it is copied into the uploads directory
under a generated name; otherwise it is taken as the basename of an image
already present there.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddSnap")
		if err != nil {
			return err
		}
		defer a.Close()

		username, image := args[0], args[1]

		imageName := filepath.Base(image)
		if _, err := os.Stat(image); err == nil {
			imageName, err = a.Uploads().Import(image)
			if err != nil {
				return fmt.Errorf("importing image: %w", err)
			}
		}

		created, err := a.Service().AddSnap(username, imageName, addCaption, addHashtags, addLocation)
		if err != nil {
			return err
		}

		fmt.Printf("Snap %d posted by %s (%s)\n", created.ID, created.Username, created.ImageURL)
		return nil
	},
}

var snapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all snaps, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSnaps")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps := a.Service().ListSnaps()
		if len(snaps) == 0 {
			fmt.Println("No snaps")
			return nil
		}

		for _, s := range snaps {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n",
				s.ID, s.Username, s.ImageURL, s.Caption, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var snapShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single snap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("ShowSnap")
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.Service().GetSnap(id)
		if s == nil {
			return fmt.Errorf("snap %d not found", id)
		}

		fmt.Printf("ID:       %d\n", s.ID)
		fmt.Printf("User:     %s\n", s.Username)
		fmt.Printf("Image:    %s\n", s.ImageURL)
		fmt.Printf("Caption:  %s\n", s.Caption)
		fmt.Printf("Hashtags: %s\n", s.Hashtags)
		fmt.Printf("Location: %s\n", s.Location)
		fmt.Printf("Created:  %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var (
	editCaption  string
	editHashtags string
)

var snapEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace a snap's caption and hashtags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("EditSnap")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Service().UpdateSnap(id, editCaption, editHashtags) {
			return fmt.Errorf("snap %d not found", id)
		}

		fmt.Printf("Snap %d updated\n", id)
		return nil
	},
}

var snapDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snap and its image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("DeleteSnap")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Service().DeleteSnap(id) {
			return fmt.Errorf("snap %d not found", id)
		}

		fmt.Printf("Snap %d deleted\n", id)
		return nil
	},
}

var snapViewCmd = &cobra.Command{
	Use:   "view <id> <username>",
	Short: "Mark a snap as viewed by a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("ViewSnap")
		if err != nil {
			return err
		}
		defer a.Close()

		viewer, err := a.Service().EnsureUser(args[1])
		if err != nil {
			return err
		}

		if !a.Service().MarkViewed(id, viewer.ID) {
			return fmt.Errorf("could not mark snap %d viewed by %s", id, viewer.Username)
		}

		fmt.Printf("Snap %d viewed by %s\n", id, viewer.Username)
		return nil
	},
}

// user commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userEnsureCmd = &cobra.Command{
	Use:   "ensure <username>",
	Short: "Look up a user, creating it if absent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EnsureUser")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Service().EnsureUser(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("User %s has id %d\n", user.Username, user.ID)
		return nil
	},
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snap id %q", arg)
	}
	return id, nil
}

func init() {
	snapAddCmd.Flags().StringVar(&addCaption, "caption", "", "snap caption")
	snapAddCmd.Flags().StringVar(&addHashtags, "hashtags", "", "free-text hashtags")
	snapAddCmd.Flags().StringVar(&addLocation, "location", "", "location label")

	snapEditCmd.Flags().StringVar(&editCaption, "caption", "", "new caption")
	snapEditCmd.Flags().StringVar(&editHashtags, "hashtags", "", "new hashtags")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	snapCmd.AddCommand(snapAddCmd)
	snapCmd.AddCommand(snapListCmd)
	snapCmd.AddCommand(snapShowCmd)
	snapCmd.AddCommand(snapEditCmd)
	snapCmd.AddCommand(snapDeleteCmd)
	snapCmd.AddCommand(snapViewCmd)

	userCmd.AddCommand(userEnsureCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(snapCmd)
	rootCmd.AddCommand(userCmd)
}
