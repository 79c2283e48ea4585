package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/benchtop/benchtop/internal/batch"
	"github.com/benchtop/benchtop/internal/batchpoll"
	"github.com/benchtop/benchtop/internal/client"
	"github.com/benchtop/benchtop/internal/config"
	"github.com/benchtop/benchtop/internal/domain"
	"github.com/benchtop/benchtop/internal/history"
	"github.com/benchtop/benchtop/internal/notify"
	"github.com/benchtop/benchtop/internal/observer"
	"github.com/benchtop/benchtop/internal/preset"
	"github.com/benchtop/benchtop/internal/resultstore"
	"github.com/benchtop/benchtop/internal/runctl"
	"github.com/benchtop/benchtop/internal/selection"
	"github.com/benchtop/benchtop/tui"
	"github.com/benchtop/benchtop/web/api"
)

var (
	batchLimit  int
	batchIDs    []string
	batchPreset string
	batchWatch  bool
	histLimit   int
	servePort   int
)

func init() {
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the console",
		RunE:  runTUI,
	}
	rootCmd.AddCommand(tuiCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	showCmd := &cobra.Command{
		Use:   "show TASK",
		Short: "Show task detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)

	runCmd := &cobra.Command{
		Use:   "run TASK",
		Short: "Trigger a run and print the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	rootCmd.AddCommand(runCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print the aggregate report",
		RunE:  runReport,
	}
	rootCmd.AddCommand(reportCmd)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage batch sweeps",
	}
	batchStartCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a batch sweep",
		RunE:  runBatchStart,
	}
	batchStartCmd.Flags().IntVar(&batchLimit, "limit", 0, "max tasks to process (0 = config default)")
	batchStartCmd.Flags().StringSliceVar(&batchIDs, "ids", nil, "explicit task ids")
	batchStartCmd.Flags().StringVar(&batchPreset, "preset", "", "preset file with limit and ids")
	batchStartCmd.Flags().BoolVar(&batchWatch, "watch", false, "poll progress until the batch finishes")
	batchCmd.AddCommand(batchStartCmd)

	batchStopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Request a batch stop",
		RunE:  runBatchStop,
	}
	batchCmd.AddCommand(batchStopCmd)

	batchStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show batch progress",
		RunE:  runBatchStatus,
	}
	batchCmd.AddCommand(batchStatusCmd)

	batchWatchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running batch until it finishes",
		RunE:  runBatchWatch,
	}
	batchCmd.AddCommand(batchWatchCmd)
	rootCmd.AddCommand(batchCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run unattended batch sweeps on cron schedules",
		RunE:  runSchedule,
	}
	rootCmd.AddCommand(scheduleCmd)

	historyCmd := &cobra.Command{
		Use:   "history [TASK]",
		Short: "Show recorded run attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "max attempts to show")
	rootCmd.AddCommand(historyCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only status mirror",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (0 = config default)")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func newLogger() *slog.Logger {
	if verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.DiscardHandler)
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	if cfg.History.DatabasePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.DatabasePath), 0o755); err != nil {
		logger.Warn("creating history directory failed", "err", err)
		return nil
	}
	store, err := history.New(cfg.History.DatabasePath)
	if err != nil {
		logger.Warn("opening history database failed", "err", err)
		return nil
	}
	return store
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notify.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notify.WebhookURL))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

// batchParams resolves limit and ids from flags, preset file, and config
func batchParams(cfg *config.Config) (int, []string, error) {
	limit := cfg.Batch.Limit
	var ids []string

	presetPath := cfg.Batch.PresetPath
	if batchPreset != "" {
		presetPath = batchPreset
	}
	if presetPath != "" {
		p, err := preset.Load(presetPath)
		if err != nil {
			return 0, nil, fmt.Errorf("loading preset: %w", err)
		}
		if p.Limit > 0 {
			limit = p.Limit
		}
		ids = p.IDs
	}

	if batchLimit > 0 {
		limit = batchLimit
	}
	if len(batchIDs) > 0 {
		ids = batchIDs
	}
	return limit, ids, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.DiscardHandler)
	if verbose {
		// Logging to stderr would corrupt the alternate screen
		if f, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.History.DatabasePath), "benchtop.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			logger = slog.New(slog.NewTextHandler(f, nil))
			defer f.Close()
		}
	}

	c := client.New(cfg.Backend.BaseURL, logger)
	store := resultstore.New()
	hist := openHistory(cfg, logger)
	var recorder runctl.Recorder
	if hist != nil {
		recorder = hist
		defer hist.Close()
	}

	coordinator := selection.New(c, store, logger, nil)
	controller := runctl.New(c, store, recorder, logger)

	// mirror is assigned before the poller starts, so the callback never
	// observes a partially built server.
	var mirror *api.Server
	poller := batchpoll.New(c, cfg.PollInterval(), logger, func(status domain.BatchStatus) {
		if mirror != nil {
			mirror.BroadcastBatch(status)
		}
	})

	limit, ids, err := batchParams(cfg)
	if err != nil {
		return err
	}

	model := tui.NewModel(tui.ModelConfig{
		Backend:     c,
		Store:       store,
		Coordinator: coordinator,
		Controller:  controller,
		Poller:      poller,
		BatchLimit:  limit,
		BatchIDs:    ids,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	if cfg.Web.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
		mirror = api.NewServer(c, store, poller, addr)
		go func() {
			if err := mirror.Start(); err != nil {
				logger.Warn("status mirror stopped", "err", err)
			}
		}()
	}

	// Apply config edits without a restart
	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultConfigPath()
	}
	if watcher, err := observer.NewConfigWatcher(watchPath, func(path string) {
		ncfg, err := config.Load(path)
		if err != nil {
			logger.Warn("config reload failed", "err", err)
			return
		}
		nlimit, nids, err := batchParams(ncfg)
		if err != nil {
			logger.Warn("config reload failed", "err", err)
			return
		}
		p.Send(tui.ConfigReloadedMsg{BatchLimit: nlimit, BatchIDs: nids})
	}); err == nil {
		watcher.Start(context.Background())
		defer watcher.Stop()
	}

	_, err = p.Run()
	return err
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	c := client.New(cfg.Backend.BaseURL, logger)
	tasks, err := c.ListTasks(cmd.Context())
	if err != nil {
		return err
	}

	hist := openHistory(cfg, logger)
	if hist != nil {
		defer hist.Close()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tSTATUS\tPASSED\tFAILED\tERRORED")
	for _, t := range tasks {
		passed, failed, errored := "-", "-", "-"
		if hist != nil {
			if p, f, e, err := hist.CountByOutcome(t.ID); err == nil {
				passed, failed, errored = fmt.Sprint(p), fmt.Sprint(f), fmt.Sprint(e)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Project, t.Status, passed, failed, errored)
	}
	w.Flush()

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, newLogger())
	detail, err := c.GetTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Instance:    %s\n", detail.InstanceID)
	fmt.Printf("Repo:        %s\n", detail.Repo)
	fmt.Printf("Base commit: %s\n", detail.BaseCommit)
	fmt.Printf("\n%s\n", detail.ProblemStatement)
	if detail.DocChanges != "" {
		fmt.Printf("\nDoc changes:\n%s\n", detail.DocChanges)
	}
	for k, v := range detail.Augmentations {
		fmt.Printf("\n[%s]\n%s\n", k, v)
	}

	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	taskID := args[0]

	c := client.New(cfg.Backend.BaseURL, logger)
	store := resultstore.New()
	store.SetOwner(taskID)

	hist := openHistory(cfg, logger)
	var recorder runctl.Recorder
	if hist != nil {
		recorder = hist
		defer hist.Close()
	}

	controller := runctl.New(c, store, recorder, logger)

	fmt.Printf("Running %s ...\n", taskID)
	controller.Run(cmd.Context(), taskID)

	result := store.Result()
	if result == nil {
		return fmt.Errorf("run produced no result")
	}

	notifier := buildNotifier(cfg)
	if err := notifier.Send(notify.RunFinished(taskID, result.Success, result.Failed())); err != nil {
		logger.Warn("notification failed", "err", err)
	}

	if result.Failed() {
		fmt.Printf("ERROR")
		if result.Step != "" {
			fmt.Printf(" at step %s", result.Step)
		}
		fmt.Printf(": %s\n", result.Detail)
		return nil
	}

	verdict := "FAILED"
	if result.Success {
		verdict = "PASSED"
	}
	fmt.Printf("%s  tokens: %d total / %d prompt  f2p: %d/%d  p2p: %d/%d\n",
		verdict, result.TokenUsage.Total, result.TokenUsage.Prompt,
		len(result.F2P.Success), len(result.F2P.Success)+len(result.F2P.Fail),
		len(result.P2P.Success), len(result.P2P.Success)+len(result.P2P.Fail))

	if result.Patch != "" {
		fmt.Printf("\n%s\n", result.Patch)
	} else {
		fmt.Println("\n(no patch produced)")
	}

	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, newLogger())
	report, err := c.Report(cmd.Context())
	if err != nil {
		if errors.Is(err, client.ErrReportUnavailable) {
			fmt.Println("No report available yet")
			return nil
		}
		return err
	}

	fmt.Println(report)
	return nil
}

func runBatchStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	limit, ids, err := batchParams(cfg)
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, logger)

	if !batchWatch {
		if err := c.StartBatch(cmd.Context(), limit, ids); err != nil {
			return err
		}
		fmt.Printf("Batch started (limit %d, %d explicit ids)\n", limit, len(ids))
		return nil
	}

	poller := batchpoll.New(c, cfg.PollInterval(), logger, func(status domain.BatchStatus) {
		printBatchStatus(status)
	})
	if err := poller.Start(cmd.Context(), limit, ids); err != nil {
		return err
	}
	defer poller.Close()

	fmt.Printf("Batch started (limit %d), polling every %s\n", limit, cfg.PollInterval())
	waitForIdle(cmd.Context(), poller)
	fmt.Println("Batch finished")

	final := poller.Status()
	if err := buildNotifier(cfg).Send(notify.BatchFinished(final.Processed, final.Total)); err != nil {
		logger.Warn("notification failed", "err", err)
	}
	return nil
}

func runBatchStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, newLogger())
	if err := c.StopBatch(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Stop requested; the batch halts after the current task")
	return nil
}

func runBatchStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, newLogger())
	status, err := c.BatchStatus(cmd.Context())
	if err != nil {
		return err
	}

	printBatchStatus(*status)
	return nil
}

func runBatchWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, newLogger())

	// One request at a time; the next poll is scheduled only after the
	// previous one settles.
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-timer.C:
		}

		status, err := c.BatchStatus(cmd.Context())
		if err != nil {
			timer.Reset(cfg.PollInterval())
			continue
		}
		printBatchStatus(*status)
		if !status.IsRunning {
			return nil
		}
		timer.Reset(cfg.PollInterval())
	}
}

func printBatchStatus(status domain.BatchStatus) {
	state := "idle"
	if status.IsRunning {
		state = "running"
	}
	fmt.Printf("%s  %d/%d (%.0f%%)\n", state, status.Processed, status.Total, status.Fraction()*100)
	for _, line := range status.TailLogs(batchpoll.LogTail) {
		fmt.Printf("  %s\n", line)
	}
}

func waitForIdle(ctx context.Context, poller *batchpoll.Poller) {
	for poller.State() == batchpoll.Running {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	if cfg.Backend.SchedulePath == "" {
		return fmt.Errorf("backend.schedule_path not configured")
	}

	schedCfg, err := batch.LoadScheduleConfig(cfg.Backend.SchedulePath)
	if err != nil {
		return err
	}
	if len(schedCfg.Entries) == 0 {
		return fmt.Errorf("no schedule entries in %s", cfg.Backend.SchedulePath)
	}

	sched, err := batch.NewScheduler(schedCfg.Entries, logger)
	if err != nil {
		return err
	}

	c := client.New(cfg.Backend.BaseURL, logger)
	notifier := buildNotifier(cfg)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		sched.Stop()
	}()

	fmt.Printf("Scheduling %d entries, next runs:\n", len(schedCfg.Entries))
	for _, name := range sched.ListEntries() {
		fmt.Printf("  %-20s %s\n", name, sched.NextRun(name).Format(time.RFC3339))
	}

	sched.Start(func(entry batch.ScheduleEntry) error {
		logger.Info("starting scheduled batch", "schedule", entry.Name)
		poller := batchpoll.New(c, cfg.PollInterval(), logger, nil)
		if err := poller.Start(context.Background(), entry.Limit, entry.IDs); err != nil {
			return err
		}
		defer poller.Close()
		waitForIdle(context.Background(), poller)
		logger.Info("scheduled batch finished", "schedule", entry.Name)

		final := poller.Status()
		if err := notifier.Send(notify.BatchFinished(final.Processed, final.Total)); err != nil {
			logger.Warn("notification failed", "schedule", entry.Name, "err", err)
		}
		return nil
	})

	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.New(cfg.History.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := history.ListOptions{Limit: histLimit}
	if len(args) > 0 {
		opts.TaskID = args[0]
	}

	attempts, err := store.List(opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTASK\tOUTCOME\tTOKENS\tDURATION")
	for _, a := range attempts {
		outcome := "failed"
		switch {
		case a.Status == domain.RunError:
			outcome = "error"
		case a.Success:
			outcome = "passed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			a.CreatedAt.Format("2006-01-02 15:04"), a.TaskID, outcome,
			a.TokensTotal, a.Duration.Round(time.Second))
	}
	w.Flush()

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}

	c := client.New(cfg.Backend.BaseURL, logger)
	store := resultstore.New()

	var server *api.Server
	poller := batchpoll.New(c, cfg.PollInterval(), logger, func(status domain.BatchStatus) {
		server.BroadcastBatch(status)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	server = api.NewServer(c, store, poller, addr)

	// The mirror owns no batch of its own; it follows whatever the
	// backend is doing and streams the snapshots out over SSE.
	if err := poller.Follow(); err != nil {
		return err
	}
	defer poller.Close()

	fmt.Printf("Status mirror listening at http://%s\n", addr)
	return server.Start()
}
