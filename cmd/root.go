package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/spritesheet/internal/pack"
	"github.com/kiesman99/spritesheet/pkg/sprite"
)

const version = "1.0.0"

var (
	cfgFile string
	logger  = newLogger(os.Stderr, log.InfoLevel)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spritesheet INPUT_PATH",
	Short: "Bundle all images in a folder into a single spritesheet",
	Long: `spritesheet bundles all images in a folder into a single image.

Every file under INPUT_PATH ending in .png, .bmp or .jpeg is placed on a grid,
left to right and top to bottom. The size of the largest image is used as the
tile size; smaller images sit in the top-left corner of their tile. The output
format follows the extension of the output file.

Examples:
  # Bundle ./sprites into spritesheet_out.png, 10 columns
  spritesheet ./sprites

  # Four columns, custom output, overwrite if it exists
  spritesheet ./sprites -m 4 -o atlas.png -f

  # Leave two images out and write a JSON index of the placements
  spritesheet ./sprites -i sprites/old.png -i sprites/tmp/test.bmp --index atlas.json

  # Start HTTP server
  spritesheet serve --port 8080`,
	Version:      version,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			logger.SetLevel(log.DebugLevel)
		}
	},
	RunE: runPack,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.spritesheet.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	// Layout options
	rootCmd.Flags().StringP("max-cols", "m", strconv.Itoa(sprite.DefaultMaxCols), "maximum number of tile columns")

	// Output options
	rootCmd.Flags().StringP("output", "o", sprite.DefaultOutput, "output file name")
	rootCmd.Flags().BoolP("force", "f", false, "force output override")
	rootCmd.Flags().String("index", "", "also write a JSON index of sprite rectangles")

	// Input options
	rootCmd.Flags().StringSliceP("ignore", "i", []string{}, "images to be ignored (repeatable)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("max-cols", rootCmd.Flags().Lookup("max-cols"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("force", rootCmd.Flags().Lookup("force"))
	viper.BindPFlag("index", rootCmd.Flags().Lookup("index"))
	viper.BindPFlag("ignore", rootCmd.Flags().Lookup("ignore"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".spritesheet" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".spritesheet")
	}

	viper.SetEnvPrefix("spritesheet")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", "path", viper.ConfigFileUsed())
	}
}

func runPack(cmd *cobra.Command, args []string) error {
	maxCols, err := sprite.ParseMaxCols(viper.GetString("max-cols"))
	if err != nil {
		return err
	}

	opts := &sprite.Options{
		Input:   args[0],
		Output:  viper.GetString("output"),
		MaxCols: maxCols,
		Ignore:  viper.GetStringSlice("ignore"),
		Force:   viper.GetBool("force"),
		Index:   viper.GetString("index"),
	}

	packer := pack.NewPacker(opts, logger)

	result, err := packer.Run()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d images, %dx%d tiles, %d columns x %d rows\n",
		opts.Output, len(result.Files),
		result.Layout.TileWidth, result.Layout.TileHeight,
		result.Layout.Columns, result.Layout.Rows)
	return nil
}
