package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"docvault/internal/bootstrap"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/logging"
	"docvault/internal/model"
	"docvault/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	c := &cli{
		cfg: cfg,
		log: logging.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Location()),
		out: os.Stdout,
	}
	err := newRootCommand(c).ExecuteContext(ctx)
	c.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docvault: %v\n", err)
		os.Exit(1)
	}
}

// cli carries what every subcommand needs. Components are built on first use and
// shared, so an in-memory configuration keeps its state across commands in one process.
type cli struct {
	cfg        *config.AppConfig
	log        *logrus.Logger
	out        io.Writer
	components *bootstrap.Components

	requester string
	admin     bool
}

func (c *cli) documents(ctx context.Context) (service.DocumentService, error) {
	if c.components == nil {
		comp, err := bootstrap.Build(ctx, c.cfg, c.log, nil)
		if err != nil {
			return nil, err
		}
		c.components = comp
	}
	return c.components.Documents, nil
}

func (c *cli) close() {
	if c.components != nil {
		_ = c.components.Close()
		c.components = nil
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docvault",
		Short: "DocVault document store CLI",
		Long: `docvault runs document store operations directly against the configured catalog,
object store and key service. Configuration comes from the same environment
variables (or .env file) as the API server.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&c.requester, "as", os.Getenv("USER"), "Requester identity used for ownership and access checks")
	cmd.PersistentFlags().BoolVar(&c.admin, "admin", false, "Act with the administrator role")
	cmd.AddCommand(
		newMigrateCmd(c),
		newUploadCmd(c),
		newGetCmd(c),
		newSearchCmd(c),
		newDeleteCmd(c),
	)
	return cmd
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the metadata catalog schema if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := database.NewPostgres(ctx, c.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return migration.EnsureMigrated(ctx, db, c.log, c.cfg.Database.Host)
		},
	}
}

func newUploadCmd(c *cli) *cobra.Command {
	var (
		path        string
		name        string
		contentType string
		attrs       map[string]string
	)
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Encrypt and store a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if name == "" {
				name = filepath.Base(args[0])
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(name))
			}

			docs, err := c.documents(ctx)
			if err != nil {
				return err
			}
			doc, err := docs.Upload(ctx, service.UploadInput{
				Path:        path,
				FileName:    name,
				ContentType: contentType,
				Content:     f,
				Attributes:  attrs,
				OwnerID:     c.requester,
			})
			if err != nil {
				return err
			}
			return c.printJSON(doc)
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Logical folder to file the document under")
	cmd.Flags().StringVar(&name, "name", "", "Stored file name (defaults to the base name of FILE)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type (guessed from the extension when empty)")
	cmd.Flags().StringToStringVarP(&attrs, "attr", "a", nil, "Searchable attribute as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newGetCmd(c *cli) *cobra.Command {
	var (
		output   string
		metadata bool
	)
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Decrypt a document to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := c.documents(ctx)
			if err != nil {
				return err
			}

			if metadata {
				doc, err := docs.GetMetadata(ctx, args[0], c.requester, c.admin)
				if err != nil {
					return err
				}
				return c.printJSON(doc)
			}

			doc, err := docs.Retrieve(ctx, args[0], c.requester, c.admin)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = c.out.Write(doc.Content)
				return err
			}
			return os.WriteFile(output, doc.Content, 0o600)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write content to this file instead of stdout")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Print the metadata record instead of the content")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var (
		attrs  map[string]string
		prefix string
		owner  string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find readable documents by attributes, path prefix or owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := c.documents(ctx)
			if err != nil {
				return err
			}

			var found []model.DocumentMetadata
			switch {
			case prefix != "":
				found, err = docs.FindByPath(ctx, prefix, c.requester, c.admin)
			case owner != "":
				found, err = docs.FindByOwner(ctx, owner, c.requester, c.admin)
			default:
				found, err = docs.Search(ctx, attrs, c.requester, c.admin)
			}
			if err != nil {
				return err
			}
			if found == nil {
				found = []model.DocumentMetadata{}
			}
			return c.printJSON(found)
		},
	}
	cmd.Flags().StringToStringVarP(&attrs, "attr", "a", nil, "Attribute criterion as key=value; all must match")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Match documents whose path starts with this prefix")
	cmd.Flags().StringVar(&owner, "owner", "", "Match documents created by this user")
	cmd.MarkFlagsMutuallyExclusive("attr", "prefix", "owner")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a document and its stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := c.documents(ctx)
			if err != nil {
				return err
			}
			if err := docs.Delete(ctx, args[0], c.requester, c.admin); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", args[0])
			return nil
		},
	}
}
