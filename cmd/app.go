package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	csys "github.com/shopmonkeyus/go-common/sys"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tablecraft/tablecraft/internal"
	"github.com/tablecraft/tablecraft/internal/apiclient"
	"github.com/tablecraft/tablecraft/internal/model"
	"github.com/tablecraft/tablecraft/internal/services"
	"github.com/tablecraft/tablecraft/internal/session"
	"github.com/tablecraft/tablecraft/internal/store"
	"github.com/tablecraft/tablecraft/internal/util"
)

var errNotLoggedIn = errors.New("not logged in, run tablecraft login first")

// app holds everything a command needs to talk to the backend.
type app struct {
	ctx     context.Context
	cancel  context.CancelFunc
	config  *viper.Viper
	logger  logger.Logger
	session *session.DBStore
	client  *apiclient.Client
	svc     *services.Services
	store   *store.Store
	json    bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(config)
	dataDir := config.GetString("data-dir")
	if err := util.EnsureDir(dataDir); err != nil {
		return nil, errors.Wrapf(err, "data directory %s is not usable", dataDir)
	}
	sess, err := session.NewDBStore(session.DBConfig{Logger: log, Dir: dataDir})
	if err != nil {
		return nil, err
	}
	opts := []apiclient.Option{
		apiclient.WithLogger(log),
		apiclient.WithStore(sess),
		apiclient.WithRetry(config.GetInt("retry-count"), config.GetDuration("retry-delay")),
		apiclient.WithTimeout(config.GetDuration("timeout")),
		apiclient.WithUserAgent(util.GetSystemInfo().UserAgent(Version)),
	}
	if id, err := util.GetMachineId(); err == nil {
		opts = append(opts, apiclient.WithDeviceID(id))
	} else {
		log.Debug("no machine id available: %s", err)
	}
	client, err := apiclient.New(config.GetString("api-url"), opts...)
	if err != nil {
		sess.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer util.RecoverPanic(log)
		select {
		case <-ctx.Done():
		case <-csys.CreateShutdownChannel():
			log.Info("interrupted, cancelling")
			cancel()
		}
	}()
	log.Trace("running %s", strings.Join(util.MaskArguments(os.Args[1:]), " "))
	if u, err := util.MaskURL(config.GetString("api-url")); err == nil {
		log.Trace("using api %s", u)
	}
	return &app{
		ctx:     ctx,
		cancel:  cancel,
		config:  config,
		logger:  log,
		session: sess,
		client:  client,
		svc: services.New(ctx, client, services.Config{
			Logger:            log,
			CatalogTTL:        config.GetDuration("catalog-ttl"),
			ImportConcurrency: config.GetInt("import-concurrency"),
		}),
		store: store.New(store.Config{Logger: log, Session: sess}),
		json:  config.GetBool("json"),
	}, nil
}

// Close flushes the state snapshot and releases the session database.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error saving state: %s", err)
	}
	a.svc.Close()
	stats := internal.GetClientStats()
	a.logger.Trace("%.0f requests, %.0f retries, %.0f token refreshes", stats.Requests, stats.Retries, stats.Refreshes)
	a.cancel()
	a.session.Close()
}

// run builds the app for a command and turns a panic into an error. An expired session also resets the local state.
func run(fn func(a *app, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		err = util.RecoverError(func() error {
			return fn(a, cmd, args)
		})
		if apiclient.ShouldLogout(err) {
			a.store.Dispatch(store.Action{Type: store.ActionLogout})
		}
		if err != nil {
			a.logger.Debug("%s failed: %+v", cmd.CommandPath(), err)
		}
		return err
	}
}

func (a *app) user() (*model.User, error) {
	if !a.client.IsAuthenticated() {
		return nil, errNotLoggedIn
	}
	user, err := a.client.CurrentUser()
	if errors.Is(err, session.ErrNoUser) {
		return nil, errNotLoggedIn
	}
	return user, err
}

// project resolves the --project flag or the selected project and fetches its current version.
func (a *app) project(cmd *cobra.Command) (*model.Project, error) {
	user, err := a.user()
	if err != nil {
		return nil, err
	}
	ref := mustFlagString(cmd, "project", false)
	if ref == "" {
		ref = a.store.State().SelectedProjectID
	}
	if ref == "" {
		return nil, errors.New("no project selected, use --project or tablecraft projects select")
	}
	projects, err := a.svc.Projects.ForUser(a.ctx, user.ID)
	if err != nil {
		return nil, err
	}
	a.store.Dispatch(store.Action{Type: store.ActionSetProjects, Projects: projects})
	for _, p := range projects {
		if p.ID == ref || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return nil, &apiclient.NotFoundError{APIError: apiclient.APIError{Status: 404, Message: "project " + ref}}
}

// findTable resolves a table of the project by id or name.
func findTable(project *model.Project, ref string) (*model.Table, error) {
	t := project.FindTable(ref)
	if t == nil {
		return nil, &apiclient.NotFoundError{APIError: apiclient.APIError{Status: 404, Message: "table " + ref + " in project " + project.Name}}
	}
	return t, nil
}

// updateSchema applies fn to the project on the backend and mirrors the result into the local state.
func (a *app) updateSchema(project *model.Project, fn func(p *model.Project) error) (*model.Project, error) {
	updated, err := a.svc.Projects.UpdateSchema(a.ctx, project.ID, fn)
	if err != nil {
		return nil, err
	}
	a.store.Dispatch(store.Action{Type: store.ActionUpdateProject, Project: updated})
	return updated, nil
}
