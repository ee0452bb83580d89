// Command bodyprobe fetches a URL and reports which body accessors apply
// to the response and what they decode to.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "bodyprobe",
	Short:        "Decodes HTTP response bodies by their Content-Type.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Log backend resolution and decode failures")
	flags.Duration("timeout", 10*time.Second, "HTTP client timeout")
	flags.StringSlice("prefer-xml", nil, "Ordered XML backends to try, e.g. encoding/xml,etree")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("prefer-xml", flags.Lookup("prefer-xml"))

	viper.SetEnvPrefix("BODYPROBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	log.SetLevel(log.InfoLevel)
	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
