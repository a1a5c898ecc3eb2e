package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"influencekit/internal/analytics"
	"influencekit/internal/campaign"
	"influencekit/internal/config"
	"influencekit/internal/crawler"
	"influencekit/internal/engage"
	"influencekit/internal/jobs"
	"influencekit/internal/model"
)

func cmdInit(_ context.Context, args []string) error {
	fset := flag.NewFlagSet("init", flag.ExitOnError)
	path := fset.String("path", defaultConfigPath, "config file path")
	if _, err := parseArgs(fset, args); err != nil {
		return err
	}
	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("%s already exists", *path)
	}
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	fmt.Println("Wrote config:", abs)
	return nil
}

// readCampaign accepts a path to a JSON file or the JSON document itself.
func readCampaign(arg string) (*campaign.Campaign, error) {
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		b, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read campaign: %w", err)
		}
		data = b
	}
	return campaign.Parse(data)
}

func cmdRun(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fset.String("config", defaultConfigPath, "config file")
	pos, err := parseArgs(fset, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: influencekit run <campaign.json | json>")
	}
	c, err := readCampaign(pos[0])
	if err != nil {
		return err
	}

	a, err := loadApp(*cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run("run", func() error {
		account, err := a.client.VerifyCredentials(ctx)
		if err != nil {
			return fmt.Errorf("verify credentials: %w", err)
		}
		a.log.Info().Str("account", account.ScreenName).Str("permission", account.Permission.String()).Msg("authenticated")

		cr := a.newCrawler(false)
		if _, err := cr.Initialize(ctx, account.ScreenName); err != nil {
			return err
		}
		if err := jobs.EnsureFollowerCache(ctx, cr, a.log); err != nil {
			return fmt.Errorf("follower cache: %w", err)
		}

		runner := jobs.NewCampaignRunner(a.db, a.client, a.log, jobs.CampaignOptions{
			RetryPause:   a.cfg.Campaign.RetryPause(),
			SandboxDelay: a.cfg.Campaign.SandboxDelay(),
			BatchSize:    a.cfg.Campaign.BatchSize,
		})
		sum, err := runner.Run(ctx, account, c)
		if err != nil {
			return err
		}
		mode := "live"
		if c.DryRun {
			mode = "dry run"
		}
		fmt.Printf("Campaign %s finished (%s): sent=%d skipped=%d run=%s\n", c.ID, mode, sum.Sent, sum.Skipped, sum.RunID)
		if sum.ForcedDryRun {
			fmt.Println("Note: the app lacks Direct Message permission, so the campaign ran as a dry run.")
		}
		return nil
	})
}

func cmdRebuildFollowers(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("rebuildFollowers", flag.ExitOnError)
	cfgPath := fset.String("config", defaultConfigPath, "config file")
	pos, err := parseArgs(fset, args)
	if err != nil {
		return err
	}
	a, err := loadApp(*cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run("rebuildFollowers", func() error {
		handle, err := a.handle(ctx, pos)
		if err != nil {
			return err
		}
		cr := a.newCrawler(true)
		target, err := cr.Initialize(ctx, handle)
		if err != nil {
			return err
		}
		if err := cr.Run(ctx); err != nil {
			return err
		}
		fmt.Printf("Rebuilt follower cache for @%s\n", target.ScreenName)
		return nil
	})
}

func cmdStatus(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fset.String("config", defaultConfigPath, "config file")
	pos, err := parseArgs(fset, args)
	if err != nil {
		return err
	}
	a, err := loadApp(*cfgPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run("status", func() error {
		handle, err := a.handle(ctx, pos)
		if err != nil {
			return err
		}
		cr := a.newCrawler(false)
		target, err := cr.Initialize(ctx, handle)
		if err != nil {
			return err
		}
		st, err := cr.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("@%s followers cache: %s (%d%%, %d stored of ~%d)\n",
			target.ScreenName, st.State, st.CompletionPercent, st.StoredFollowers, target.ExpectedFollowers)
		return nil
	})
}

func cmdStats(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fset.String("config", defaultConfigPath, "config file")
	dryRun := fset.Bool("dry-run", false, "read the dry-run history")
	pos, err := parseArgs(fset, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: influencekit stats [--dry-run] <campaign_id>")
	}
	a, err := loadApp(*cfgPath, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run("stats", func() error {
		now := time.Now().UTC()
		events, err := a.db.SendEventsSince(ctx, model.LogFor(*dryRun), pos[0], now.Add(-engage.Window))
		if err != nil {
			return err
		}
		buckets := analytics.LastDay(events, now)
		fmt.Printf("Campaign %s (%s), sends in the last 24h:\n", pos[0], model.LogFor(*dryRun))
		if err := analytics.RenderHistogram(os.Stdout, buckets, 40); err != nil {
			return err
		}
		total := analytics.Total(buckets)
		fmt.Printf("total=%d remaining=%d\n", total, max(0, engage.WindowSize-total))
		return nil
	})
}

// handle picks the crawl target: the argument, then the configured screen
// name, then the authenticated account.
func (a *app) handle(ctx context.Context, pos []string) (string, error) {
	if len(pos) > 0 {
		return strings.TrimPrefix(pos[0], "@"), nil
	}
	if a.cfg.Account.ScreenName != "" {
		return a.cfg.Account.ScreenName, nil
	}
	account, err := a.client.VerifyCredentials(ctx)
	if err != nil {
		return "", fmt.Errorf("verify credentials: %w", err)
	}
	return account.ScreenName, nil
}

func (a *app) newCrawler(force bool) *crawler.Crawler {
	return crawler.New(a.client, a.db, a.log, crawler.Options{
		RetryPause:   a.cfg.Crawl.RetryPause(),
		LookupBatch:  a.cfg.Crawl.LookupBatch,
		ForceRebuild: force,
	})
}
