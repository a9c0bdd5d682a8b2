package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openheads/headcatalog/internal/domain/auth"
)

var hashKeySHA256 bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Hash an API key for auth.api_keys",
	Long: `Hash an API key for the auth.api_keys[].key_hash config field.

The default output is a salted argon2id hash. --sha256 prints the
faster "sha256:<hex>" form instead.

Example:
  headcatalog hash-key "my-secret-api-key"
  # Output: $argon2id$v=19$m=47104,t=1,p=1$...

The key will appear in shell history. Prefer an environment variable:
  headcatalog hash-key "$FRONTEND_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := hashAPIKey(args[0], hashKeySHA256)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&hashKeySHA256, "sha256", false, `print "sha256:<hex>" instead of argon2id`)
	rootCmd.AddCommand(hashKeyCmd)
}

func hashAPIKey(raw string, fast bool) (string, error) {
	if fast {
		return "sha256:" + auth.HashKey(raw), nil
	}
	hash, err := auth.HashKeyArgon2id(raw)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return hash, nil
}
