package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/resquick/portal/internal/service"
)

// HashSecretCmd prints an officials file entry for an id and secret read from stdin.
func HashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <official-id>",
		Short: "Hash an official's password for OFFICIALS_FILE",
		Long:  "Reads the password from stdin and prints a YAML entry to paste into the officials file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read secret: %w", err)
			}
			secret = strings.TrimRight(secret, "\r\n")

			out, err := hashEntry(args[0], secret)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func hashEntry(id, secret string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("official id is required")
	}
	if secret == "" {
		return "", errors.New("secret is required on stdin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}

	out, err := yaml.Marshal(service.OfficialsFile{Officials: map[string]string{id: string(hash)}})
	if err != nil {
		return "", fmt.Errorf("failed to encode entry: %w", err)
	}
	return string(out), nil
}
