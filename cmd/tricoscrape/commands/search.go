package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trico-scraper/internal/concurrency"
	"trico-scraper/internal/domain"
	"trico-scraper/internal/export"
	"trico-scraper/internal/providers"
	"trico-scraper/internal/sftpclient"
	"trico-scraper/internal/trico"
)

type searchFlags struct {
	semesters    []string
	campuses     []string
	departments  []string
	meetTimes    []string
	courseNum    string
	instructor   string
	meetDay      string
	searchFreeze string

	policy    string
	format    string
	outPath   string
	columns   []string
	sftp      bool
	benchmark bool
}

func newSearchCommand(a *app) *cobra.Command {
	f := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search [--semester S]... [--campus C]... [--dept D]... [--out FILE] [--format json|csv|xml]",
		Short: "Searches the course guide and writes one record per course.",
		Long: "Searches the course guide and writes one record per course.\n\n" +
			"Semester, campus and department default to every value the search form offers.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, f)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&f.semesters, "semester", nil, "semester value, e.g. Fall_2018 (repeatable)")
	fl.StringSliceVar(&f.campuses, "campus", nil, "campus value (repeatable)")
	fl.StringSliceVar(&f.departments, "dept", nil, "department code (repeatable)")
	fl.StringSliceVar(&f.meetTimes, "meettime", nil, "meeting time value (repeatable)")
	fl.StringVar(&f.courseNum, "crsnum", "", "course number pattern")
	fl.StringVar(&f.instructor, "instr", "", "instructor pattern")
	fl.StringVar(&f.meetDay, "meetday", "", "meeting day pattern")
	fl.StringVar(&f.searchFreeze, "srch-frz", "", "value sent as srch_frz, passed through unchanged")
	fl.StringVar(&f.policy, "policy", "", "failure policy: fail-fast or collect-partial (default from config)")
	fl.StringVar(&f.format, "format", "", "output format: json, csv or xml (default from --out extension, else json)")
	fl.StringVarP(&f.outPath, "out", "o", "", "output file (default stdout)")
	fl.StringSliceVar(&f.columns, "columns", nil, "only keep these fields, in this order")
	fl.BoolVar(&f.sftp, "sftp", false, "upload the output file via SFTP")
	fl.BoolVar(&f.benchmark, "benchmark", false, "time the search with one worker and with the full pool")

	return cmd
}

func (f *searchFlags) filters() trico.SearchFilters {
	return trico.SearchFilters{
		Semester:     f.semesters,
		Campus:       f.campuses,
		Department:   f.departments,
		CourseNumber: f.courseNum,
		Instructor:   f.instructor,
		MeetDay:      f.meetDay,
		MeetTime:     f.meetTimes,
		SearchFreeze: f.searchFreeze,
	}
}

func runSearch(cmd *cobra.Command, a *app, f *searchFlags) error {
	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)

	if f.sftp && f.outPath == "" {
		return errors.New("--sftp needs --out")
	}

	format := export.FormatFromPath(f.outPath, export.FormatJSON)
	if f.format != "" {
		var err error
		if format, err = export.ParseFormat(f.format); err != nil {
			return err
		}
	}

	policyName := a.cfg.FailurePolicy
	if f.policy != "" {
		policyName = f.policy
	}
	policy, err := concurrency.ParseFailurePolicy(policyName)
	if err != nil {
		return err
	}

	s, err := a.newScraper(0, policy)
	if err != nil {
		return err
	}
	defer s.Close()

	var md *trico.SiteMetadata
	if f.filters().NeedsMetadata() {
		m, err := s.FetchSiteMetadata(ctx)
		if err != nil {
			return err
		}
		md = &m
	}

	if f.benchmark {
		if err := benchmark(ctx, a, f.filters(), md, policy, s); err != nil {
			return err
		}
	}

	var prov providers.CourseProvider = trico.Provider{S: s, Filters: f.filters(), Metadata: md}

	start := time.Now()
	records, err := prov.ListCourses(ctx)
	if err != nil {
		if len(records) == 0 {
			return err
		}
		log.Warn().Err(err).Int("records", len(records)).Msgf("%s: some pages failed, keeping what was read", prov.Name())
	}
	log.Info().Int("records", len(records)).Dur("took", time.Since(start)).Msg("search finished")

	if len(f.columns) > 0 {
		records = pick(records, f.columns)
	}

	if f.outPath == "" {
		return export.Write(cmd.OutOrStdout(), format, records)
	}

	if err := export.WriteFile(f.outPath, format, records); err != nil {
		return err
	}
	log.Info().Str("path", f.outPath).Str("format", string(format)).Msg("wrote records")

	if f.sftp {
		return upload(ctx, a, f.outPath)
	}
	return nil
}

func pick(records []domain.CourseRecord, columns []string) []domain.CourseRecord {
	out := make([]domain.CourseRecord, len(records))
	for i, r := range records {
		out[i] = r.Pick(columns...)
	}
	return out
}

// benchmark runs the same search on a single-worker scraper and on s, and logs both timings.
func benchmark(ctx context.Context, a *app, filters trico.SearchFilters, md *trico.SiteMetadata, policy concurrency.FailurePolicy, s *trico.Scraper) error {
	log := zerolog.Ctx(ctx)

	single, err := a.newScraper(1, policy)
	if err != nil {
		return err
	}
	defer single.Close()

	for _, run := range []struct {
		name string
		s    *trico.Scraper
	}{
		{"single", single},
		{"pool", s},
	} {
		start := time.Now()
		res, err := run.s.SearchWithMetadata(ctx, filters, md)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", run.name, err)
		}
		log.Info().
			Str("run", run.name).
			Int("workers", run.s.Workers()).
			Int("records", len(res.Records)).
			Dur("took", time.Since(start)).
			Msg("benchmark")
	}
	return nil
}

func upload(ctx context.Context, a *app, localPath string) error {
	upCfg := sftpclient.Config{
		Host:                  a.cfg.SFTP.Host,
		Port:                  a.cfg.SFTP.Port,
		User:                  a.cfg.SFTP.User,
		Pass:                  a.cfg.SFTP.Pass,
		RemoteDir:             a.cfg.SFTP.Dir,
		InsecureIgnoreHostKey: a.cfg.SFTP.InsecureIgnoreHostKey,
		KnownHosts:            a.cfg.SFTP.KnownHosts,
	}

	upCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	remotePath, err := sftpclient.UploadFile(upCtx, upCfg, localPath, filepath.Base(localPath))
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Msgf("uploaded to sftp://%s:%d%s", upCfg.Host, upCfg.Port, remotePath)
	return nil
}
