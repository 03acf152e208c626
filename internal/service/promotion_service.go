package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"student_records/internal/codec"
	"student_records/internal/config"
	"student_records/internal/model"
	"student_records/pkg/cipher"
	"student_records/pkg/logger"
	"student_records/pkg/monitoring"
	"student_records/pkg/tracing"
)

const archivePrefix = "snapshots/"

// RankingCache stores computed top-K name lists per promotion.
type RankingCache interface {
	Get(ctx context.Context, promotionID, scope string) ([]string, bool, error)
	Set(ctx context.Context, promotionID, scope string, names []string) error
	Invalidate(ctx context.Context, promotionID string) error
}

// PromotionStore is the relational export target.
type PromotionStore interface {
	Save(ctx context.Context, rec *model.PromotionRecord) error
	FindByID(ctx context.Context, id string) (*model.PromotionRecord, error)
	List(ctx context.Context) ([]model.PromotionRecord, error)
}

// PromotionService runs the promotion operations. Cache, Storage and Store
// are optional.
type PromotionService struct {
	cfg     atomic.Pointer[config.Config]
	cache   RankingCache
	storage *StorageService
	store   PromotionStore
}

func NewPromotionService(cfg *config.Config, cache RankingCache, storage *StorageService, store PromotionStore) *PromotionService {
	s := &PromotionService{cache: cache, storage: storage, store: store}
	s.cfg.Store(cfg)
	return s
}

// UpdateConfig swaps the ranking sizes, groups and passphrase in use.
func (s *PromotionService) UpdateConfig(cfg *config.Config) {
	s.cfg.Store(cfg)
}

func (s *PromotionService) Config() *config.Config {
	return s.cfg.Load()
}

func (s *PromotionService) run(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "promotion."+op)
	span.SetAttributes(attrs...)
	err := fn(ctx)
	tracing.End(span, err)
	monitoring.ObserveOperation(op, start, err)

	switch {
	case err == nil:
		logger.Log.Debug("Promotion operation done", zap.String("operation", op), zap.Duration("took", time.Since(start)))
	case model.IsNotFound(err):
		logger.Log.Warn("Promotion operation missed", zap.String("operation", op), zap.Error(err))
	default:
		logger.Log.Error("Promotion operation failed", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (s *PromotionService) prepare(p *model.Promotion) {
	if k, err := model.ParseSortKey(s.Config().Ranking.SortKey); err == nil {
		p.SetSortKey(k)
	}
	logger.Log.Info("Promotion loaded",
		zap.String("promotion", p.ID.String()),
		zap.Int("students", p.Registry.Len()),
		zap.Int("courses", p.Catalog.Len()))
}

// LoadFromText ingests the sectioned text file at path.
func (s *PromotionService) LoadFromText(ctx context.Context, path string) (*model.Promotion, error) {
	var p *model.Promotion
	err := s.run(ctx, "load_text", func(ctx context.Context) error {
		var err error
		p, err = codec.LoadTextFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		s.prepare(p)
		return nil
	}, attribute.String("path", path))
	return p, err
}

// LoadFromBinary restores a snapshot. Ciphered snapshots are deciphered
// with the configured passphrase.
func (s *PromotionService) LoadFromBinary(ctx context.Context, path string) (*model.Promotion, error) {
	var p *model.Promotion
	err := s.run(ctx, "load_binary", func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		p, err = s.decode(data)
		if err != nil {
			return fmt.Errorf("restore %s: %w", path, err)
		}
		s.prepare(p)
		return nil
	}, attribute.String("path", path))
	return p, err
}

// SaveToBinary writes p as a plain PROM snapshot.
func (s *PromotionService) SaveToBinary(ctx context.Context, p *model.Promotion, path string) error {
	return s.run(ctx, "save_binary", func(ctx context.Context) error {
		if err := codec.SaveBinaryFile(path, p); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		logger.Log.Info("Promotion saved", zap.String("path", path), zap.Int("students", p.Registry.Len()))
		return nil
	}, attribute.String("path", path))
}

// SaveTop writes the best ranking.top_overall students as their own
// snapshot.
func (s *PromotionService) SaveTop(ctx context.Context, p *model.Promotion, path string) error {
	return s.SaveToBinary(ctx, p.Top(s.Config().Ranking.TopOverall), path)
}

// TopOverall returns up to ranking.top_overall names, best first.
func (s *PromotionService) TopOverall(ctx context.Context, p *model.Promotion) []string {
	k := s.Config().Ranking.TopOverall
	var names []string
	s.run(ctx, "top_overall", func(ctx context.Context) error {
		names = s.cached(ctx, p, "top:"+strconv.Itoa(k), func() []string {
			return model.DisplayNames(p.TopStudents(k))
		})
		return nil
	}, attribute.Int("k", k))
	return names
}

// TopInCourse returns up to ranking.top_per_course names for course. An
// unknown course yields an error matching model.ErrCourseNotFound.
func (s *PromotionService) TopInCourse(ctx context.Context, p *model.Promotion, course string) ([]string, error) {
	k := s.Config().Ranking.TopPerCourse
	var names []string
	err := s.run(ctx, "top_in_course", func(ctx context.Context) error {
		if _, err := p.Catalog.Lookup(course); err != nil {
			return err
		}
		names = s.cached(ctx, p, "course:"+course+":"+strconv.Itoa(k), func() []string {
			top, _ := p.TopStudentsInCourse(course, k)
			return model.DisplayNames(top)
		})
		return nil
	}, attribute.String("course", course), attribute.Int("k", k))
	return names, err
}

func (s *PromotionService) cached(ctx context.Context, p *model.Promotion, scope string, compute func() []string) []string {
	if s.cache == nil {
		return compute()
	}
	id := p.ID.String()
	names, ok, err := s.cache.Get(ctx, id, scope)
	if err != nil {
		logger.Log.Warn("Ranking cache read failed", zap.String("scope", scope), zap.Error(err))
	}
	if ok {
		monitoring.CacheLookups.WithLabelValues("hit").Inc()
		return names
	}
	monitoring.CacheLookups.WithLabelValues("miss").Inc()
	names = compute()
	if err := s.cache.Set(ctx, id, scope, names); err != nil {
		logger.Log.Warn("Ranking cache write failed", zap.String("scope", scope), zap.Error(err))
	}
	return names
}

// SetSortKey parses name and applies it. On error the active key is kept.
func (s *PromotionService) SetSortKey(p *model.Promotion, name string) error {
	k, err := model.ParseSortKey(name)
	if err != nil {
		return err
	}
	return p.SetSortKey(k)
}

// SortedListing renders one "<id> <Lastname> <Firstname> <average>" line
// per student in the active order.
func (s *PromotionService) SortedListing(p *model.Promotion) []string {
	students := p.Sorted()
	lines := make([]string, len(students))
	for i, st := range students {
		lines[i] = fmt.Sprintf("%d %s %s %s", st.ID, st.LastName, st.FirstName, st.Average())
	}
	return lines
}

func (s *PromotionService) Display(w io.Writer, p *model.Promotion) error {
	return p.Format(w)
}

// AddGrade records a grade after load and drops the cached rankings.
func (s *PromotionService) AddGrade(ctx context.Context, p *model.Promotion, id uint32, course string, grade float32) error {
	return s.run(ctx, "add_grade", func(ctx context.Context) error {
		if err := p.AddGrade(id, course, grade); err != nil {
			return err
		}
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, p.ID.String()); err != nil {
				logger.Log.Warn("Ranking cache invalidation failed", zap.Error(err))
			}
		}
		return nil
	}, attribute.Int64("student", int64(id)), attribute.String("course", course))
}

// StudentsValidating lists the students who validated every course of the
// configured group.
func (s *PromotionService) StudentsValidating(p *model.Promotion, group string) ([]*model.Student, error) {
	g, ok := s.Config().Group(group)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", model.ErrNotFound, ErrUnknownGroup, group)
	}
	return p.StudentsValidating(g)
}

func archiveName(p *model.Promotion) string {
	return archivePrefix + p.ID.String() + ".bin"
}

// Archive uploads a snapshot of p to object storage, ciphered when a
// passphrase is configured, and returns the object name.
func (s *PromotionService) Archive(ctx context.Context, p *model.Promotion) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("archive: %w", ErrNotConfigured)
	}
	name := archiveName(p)
	err := s.run(ctx, "archive", func(ctx context.Context) error {
		data, err := codec.EncodeBinary(p)
		if err != nil {
			return err
		}
		if pass := s.Config().Cipher.Passphrase; pass != "" {
			if data, err = cipher.EncryptBytes(data, pass); err != nil {
				return err
			}
		}
		url, err := s.storage.UploadBytes(ctx, name, data)
		if err != nil {
			return err
		}
		logger.Log.Info("Promotion archived", zap.String("object", name), zap.String("url", url))
		return nil
	}, attribute.String("object", name))
	return name, err
}

// Restore downloads and decodes an archived snapshot.
func (s *PromotionService) Restore(ctx context.Context, name string) (*model.Promotion, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("restore: %w", ErrNotConfigured)
	}
	var p *model.Promotion
	err := s.run(ctx, "restore", func(ctx context.Context) error {
		data, err := s.storage.Download(ctx, name)
		if err != nil {
			return err
		}
		p, err = s.decode(data)
		if err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
		s.prepare(p)
		return nil
	}, attribute.String("object", name))
	return p, err
}

func (s *PromotionService) DeleteArchive(ctx context.Context, name string) error {
	if s.storage == nil {
		return fmt.Errorf("delete archive: %w", ErrNotConfigured)
	}
	return s.run(ctx, "delete_archive", func(ctx context.Context) error {
		return s.storage.Delete(ctx, name)
	}, attribute.String("object", name))
}

func (s *PromotionService) ListArchives(ctx context.Context) ([]string, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("list archives: %w", ErrNotConfigured)
	}
	return s.storage.List(ctx, archivePrefix)
}

func (s *PromotionService) decode(data []byte) (*model.Promotion, error) {
	if cipher.IsCiphered(data) {
		pass := s.Config().Cipher.Passphrase
		if pass == "" {
			return nil, errors.New("snapshot is ciphered and no passphrase is configured")
		}
		var err error
		if data, err = cipher.DecryptBytes(data, pass); err != nil {
			return nil, err
		}
	}
	return codec.DecodeBinary(data)
}

// Export writes p to the relational store, replacing a previous export.
func (s *PromotionService) Export(ctx context.Context, p *model.Promotion) error {
	if s.store == nil {
		return fmt.Errorf("export: %w", ErrNotConfigured)
	}
	return s.run(ctx, "export", func(ctx context.Context) error {
		return s.store.Save(ctx, p.ToRecord())
	}, attribute.String("promotion", p.ID.String()))
}

// Import rebuilds an exported promotion.
func (s *PromotionService) Import(ctx context.Context, id string) (*model.Promotion, error) {
	if s.store == nil {
		return nil, fmt.Errorf("import: %w", ErrNotConfigured)
	}
	var p *model.Promotion
	err := s.run(ctx, "import", func(ctx context.Context) error {
		rec, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p, err = model.FromRecord(rec)
		return err
	}, attribute.String("promotion", id))
	return p, err
}

// ListExports returns the ids of the exported promotions, newest first.
func (s *PromotionService) ListExports(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, fmt.Errorf("list exports: %w", ErrNotConfigured)
	}
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids, nil
}
