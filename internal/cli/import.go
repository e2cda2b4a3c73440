package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// maxSeedQuantity bounds a seed entry; import adds one unit per call.
const maxSeedQuantity = 1000

// Seed is the YAML document accepted by import.
type Seed struct {
	Items []SeedItem `yaml:"items"`
}

type SeedItem struct {
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
}

// LoadSeed reads and validates a seed file. A missing quantity means 1.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	for i := range seed.Items {
		item := &seed.Items[i]
		if item.Name == "" {
			return nil, fmt.Errorf("seed item %d: name is required", i)
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.Quantity < 0 {
			return nil, fmt.Errorf("seed item %q: quantity must be positive", item.Name)
		}
		if item.Quantity > maxSeedQuantity {
			return nil, fmt.Errorf("seed item %q: quantity must be at most %d", item.Name, maxSeedQuantity)
		}
	}
	return &seed, nil
}

func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Add every item listed in a seed file",
		Long: `Add every item listed in a seed file, one unit at a time.
Each quantity may be at most 1000.

Seed format:
  items:
    - name: eggs
      quantity: 12
    - name: flour`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := LoadSeed(args[0])
			if err != nil {
				_ = formatter(opts, cmd).Error("invalid_seed", err.Error(), nil)
				return WrapExitError(ExitCommandError, "import failed", err)
			}

			return withBackend(cmd, opts, func(ctx context.Context, b *Backend, out *OutputFormatter) error {
				t, err := tracker(ctx, b, opts)
				if err != nil {
					return err
				}
				for _, item := range seed.Items {
					for i := 0; i < item.Quantity; i++ {
						if err := t.Add(ctx, item.Name); err != nil {
							return err
						}
					}
					out.VerboseLog("imported %s x%d", item.Name, item.Quantity)
				}
				return out.Inventory(t.View())
			})
		},
	}
}
