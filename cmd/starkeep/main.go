package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/starkeep/starkeep/internal/wallet"
	"github.com/starkeep/starkeep/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	registryURL string
	cfgFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "starkeep",
	Short: "Starkeep star registry CLI",
	Long: `starkeep is the command-line interface for the Starkeep registry.

It manages wallet keys, requests ownership challenges, signs them, and
registers stars on the chain.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.starkeep")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if registryURL == "" {
			registryURL = viper.GetString("registry_url")
		}
		if registryURL == "" {
			registryURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.starkeep/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "Starkeep registry URL (default http://localhost:8080)")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(challengeCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(starsCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	return client.New(registryURL)
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// loadKey reads a hex-encoded private key written by keygen.
func loadKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return wallet.DecodePrivateKey(strings.TrimRight(string(raw), "\n\r "))
}

// ── keygen ───────────────────────────────────────────────────────────────────

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new wallet keypair",
	Long: `Generate an ed25519 wallet keypair.

The private key is written hex-encoded to the output file (mode 0600); the
derived wallet address is printed to stdout.`,
	RunE: runKeygen,
}

func init() {
	keygenCmd.Flags().StringVar(&keygenOut, "out", "starkeep.key", "Path for the private key file")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	pub, priv, err := wallet.NewKeypair()
	if err != nil {
		return err
	}

	if err := os.WriteFile(keygenOut, []byte(wallet.EncodePrivateKey(priv)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	fmt.Printf("address: %s\nkey file: %s\n", wallet.Address(pub), keygenOut)
	return nil
}

// ── challenge ────────────────────────────────────────────────────────────────

var challengeCmd = &cobra.Command{
	Use:   "challenge <address>",
	Short: "Request an ownership challenge for a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		ch, err := newClient().RequestChallenge(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(ch)
	},
}

// ── sign ─────────────────────────────────────────────────────────────────────

var signKeyFile string

var signCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message (typically a challenge token) with your wallet key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := loadKey(signKeyFile)
		if err != nil {
			return err
		}
		fmt.Println(wallet.Sign(priv, args[0]))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signKeyFile, "key", "starkeep.key", "Path to the private key file")
	signCmd.MarkFlagRequired("key") //nolint:errcheck
}

// ── register ─────────────────────────────────────────────────────────────────

var registerKeyFile string

var registerCmd = &cobra.Command{
	Use:   "register <star>",
	Short: "Register a star: request a challenge, sign it, and submit the claim",
	Long: `Register runs the whole ownership-proof flow in one step:

  starkeep register --key starkeep.key Polaris

It requests a challenge for the wallet's address, signs it locally, and
submits the signed claim. The new block is printed on success.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerKeyFile, "key", "starkeep.key", "Path to the private key file")
	registerCmd.MarkFlagRequired("key") //nolint:errcheck
}

func runRegister(cmd *cobra.Command, args []string) error {
	priv, err := loadKey(registerKeyFile)
	if err != nil {
		return err
	}
	addr := wallet.Address(priv.Public().(ed25519.PublicKey))

	ctx, cancel := cmdContext()
	defer cancel()

	c := newClient()
	ch, err := c.RequestChallenge(ctx, addr)
	if err != nil {
		return fmt.Errorf("request challenge: %w", err)
	}

	block, err := c.SubmitStar(ctx, addr, ch.Challenge, wallet.Sign(priv, ch.Challenge), args[0])
	if err != nil {
		return fmt.Errorf("submit star: %w", err)
	}
	return printJSON(block)
}

// ── chain / validate / block / stars ────────────────────────────────────────

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the chain height and tip hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		overview, err := newClient().ChainOverview(ctx)
		if err != nil {
			return err
		}
		return printJSON(overview)
	},
}

var validateSecret string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a full-chain integrity check",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		c := newClient()
		if validateSecret != "" {
			token, err := c.AdminToken(ctx, validateSecret)
			if err != nil {
				return fmt.Errorf("obtain admin token: %w", err)
			}
			c = client.New(registryURL, client.WithBearerToken(token))
		}

		report, err := c.ValidateChain(ctx)
		if err != nil {
			return err
		}
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("chain integrity check failed: %d bad blocks", len(report.BadBlocks))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSecret, "admin-secret", "", "Admin secret, when the validate endpoint is guarded")
}

var (
	blockHeight int
	blockHash   string
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Fetch a block by height or hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		c := newClient()
		switch {
		case blockHash != "":
			b, err := c.BlockByHash(ctx, blockHash)
			if err != nil {
				return err
			}
			return printJSON(b)
		case blockHeight >= 0:
			b, err := c.BlockByHeight(ctx, blockHeight)
			if err != nil {
				return err
			}
			return printJSON(b)
		default:
			return fmt.Errorf("pass --height or --hash")
		}
	},
}

func init() {
	blockCmd.Flags().IntVar(&blockHeight, "height", -1, "Block height to fetch")
	blockCmd.Flags().StringVar(&blockHash, "hash", "", "Block hash to fetch")
}

var starsCmd = &cobra.Command{
	Use:   "stars <address>",
	Short: "List the stars registered by a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		stars, err := newClient().StarsByOwner(ctx, args[0])
		if err != nil {
			return err
		}
		if len(stars) == 0 {
			fmt.Println("no stars registered")
			return nil
		}
		for _, s := range stars {
			fmt.Println(s)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("starkeep", version)
	},
}
