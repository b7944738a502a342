package commands

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewUtilityCommands creates the operator commands (migrate, seed-templates, reindex).
func NewUtilityCommands() []*cobra.Command {
	return []*cobra.Command{
		newMigrateCmd(),
		newSeedTemplatesCmd(),
		newReindexCmd(),
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded module schemas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Migrate(cmd.Context())
		},
	}
}

func newSeedTemplatesCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "seed-templates",
		Short: "Create the configured workflow templates for a tenant",
		Long:  `Reads WORKFLOW_TEMPLATES_FILE and creates every template the tenant does not have yet. Existing templates are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return usageError("invalid --tenant: %v", err)
			}
			return SeedTemplates(cmd.Context(), tenantID)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (uuid)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newReindexCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the policy search index for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return usageError("invalid --tenant: %v", err)
			}
			return Reindex(cmd.Context(), tenantID)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (uuid)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
