package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault-backend/internal/database"
	"github.com/taskvault/taskvault-backend/internal/database/repository"
	"github.com/taskvault/taskvault-backend/internal/models"
	"github.com/taskvault/taskvault-backend/internal/services/apikey"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keymanager",
		Short: "Manage API keys for the Taskvault backend",
		Long: `keymanager creates, lists and revokes API keys directly against the
database. Keys issued here behave exactly like keys issued through the
HTTP API: clients authenticate by sending "<key_id>:<key_secret>" in the
X-API-Key header.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRevokeCmd())

	return cmd
}

// openKeyService connects to the database and wires up the API key service.
func openKeyService() (*apikey.Service, *repository.UserRepository, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}
	// Keep CLI output readable; gorm logs still go through logrus
	logrus.SetLevel(logrus.WarnLevel)

	db, err := database.InitDB()
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	return apikey.NewService(keyRepo, userRepo), userRepo, nil
}

// ---------- create ----------

func newCreateCmd() *cobra.Command {
	var (
		name          string
		permissions   []string
		expiresInDays int
	)

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a new API key for a user",
		Long:  "Generate a new API key for the user with the given email. The full credential is shown once and cannot be retrieved again.",
		Example: `  keymanager create alice@example.com --name "CI pipeline"
  keymanager create alice@example.com --permissions read,write --expires-in-days 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args[0], name, permissions, expiresInDays)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key")
	cmd.Flags().StringSliceVar(&permissions, "permissions", nil, "Permissions to grant (read, write, delete, all; default all)")
	cmd.Flags().IntVar(&expiresInDays, "expires-in-days", 0, "Days until the key expires (0 = never)")

	return cmd
}

func runCreate(email, name string, permissions []string, expiresInDays int) error {
	svc, userRepo, err := openKeyService()
	if err != nil {
		return err
	}

	user, err := userRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %q not found", email)
	}

	created, credential, err := svc.IssueKey(user.ID, &models.CreateAPIKeyRequest{
		Name:          name,
		Permissions:   permissions,
		ExpiresInDays: expiresInDays,
	})
	if err != nil {
		return fmt.Errorf("issue API key: %w", err)
	}

	fmt.Println("API key created:")
	fmt.Println()
	fmt.Printf("  Key:         %s\n", credential)
	fmt.Printf("  Key ID:      %s\n", created.KeyID)
	fmt.Printf("  Name:        %s\n", created.Name)
	fmt.Printf("  Permissions: %s\n", strings.Join(created.PermissionList(), ", "))
	if created.ExpiresAt != nil {
		fmt.Printf("  Expires:     %s\n", created.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Printf("  Expires:     never\n")
	}
	fmt.Println()
	fmt.Println("  Save this key now - the secret cannot be retrieved again.")
	return nil
}

// ---------- list ----------

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <email>",
		Short: "List API keys for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(args[0])
		},
	}
}

func runList(email string) error {
	svc, userRepo, err := openKeyService()
	if err != nil {
		return err
	}

	user, err := userRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %q not found", email)
	}

	keys, err := svc.ListKeys(user.ID)
	if err != nil {
		return fmt.Errorf("list API keys: %w", err)
	}
	if len(keys) == 0 {
		fmt.Printf("No API keys for %s\n", email)
		return nil
	}

	fmt.Printf("API keys for %s:\n\n", email)
	for _, key := range keys {
		status := "active"
		if !key.IsActive {
			status = "inactive"
		}
		if key.IsExpired(time.Now()) {
			status = "expired"
		}
		lastUsed := "never"
		if key.LastUsedAt != nil {
			lastUsed = key.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Printf("  %s  %-10s %s\n", key.KeyID, status, key.Name)
		fmt.Printf("    id: %s  permissions: %s  last used: %s\n",
			key.ID, strings.Join(key.PermissionList(), ","), lastUsed)
		if key.ExpiresAt != nil {
			fmt.Printf("    expires: %s\n", key.ExpiresAt.Format(time.RFC3339))
		}
	}
	return nil
}

// ---------- revoke ----------

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "revoke <email> <id>",
		Aliases: []string{"delete"},
		Short:   "Revoke an API key",
		Long:    "Permanently delete a user's API key by its record id. Revocation takes effect immediately.",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevoke(args[0], args[1])
		},
	}
}

func runRevoke(email, id string) error {
	svc, userRepo, err := openKeyService()
	if err != nil {
		return err
	}

	user, err := userRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %q not found", email)
	}

	if err := svc.RevokeKey(user.ID, id); err != nil {
		return fmt.Errorf("revoke API key: %w", err)
	}

	fmt.Printf("API key %s revoked\n", id)
	return nil
}
