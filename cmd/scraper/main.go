package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gpx_viewer/internal/logger"
	"gpx_viewer/internal/scraper"
)

var rootCmd = &cobra.Command{
	Use:   "gpx-scraper",
	Short: "Download GPX routes from a route listing site",
	Long: `Crawl a listing page for /routes/ links, open every route page and
download the first .gpx file it links to.

Examples:
  gpx-scraper
  gpx-scraper --out ./gpx --delay 2s
  gpx-scraper --base-url https://www.routes.cc --start https://www.routes.cc/region/alps`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("base-url")
		start, _ := cmd.Flags().GetString("start")
		out, _ := cmd.Flags().GetString("out")
		delay, _ := cmd.Flags().GetDuration("delay")
		level, _ := cmd.Flags().GetString("log-level")

		if err := logger.Setup(logger.Options{Level: level}); err != nil {
			return err
		}

		s, err := scraper.New(scraper.Options{BaseURL: baseURL, OutDir: out, Delay: delay}, logrus.StandardLogger())
		if err != nil {
			return err
		}
		if start == "" {
			start = baseURL + "/"
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := s.Run(ctx, start)
		if summary != nil {
			fmt.Printf("Found %d routes: %d downloaded, %d without GPX, %d failed\n",
				summary.Found, summary.Downloaded, summary.NoGPX, summary.Failed)
		}
		return err
	},
}

func init() {
	rootCmd.SilenceUsage = true

	rootCmd.Flags().String("base-url", scraper.DefaultBaseURL, "site that route links are resolved against")
	rootCmd.Flags().String("start", "", "listing page to crawl (default: base URL)")
	rootCmd.Flags().StringP("out", "o", "gpx_downloads", "output directory")
	rootCmd.Flags().Duration("delay", time.Second, "pause after each download")
	rootCmd.Flags().String("log-level", "info", "log level")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
