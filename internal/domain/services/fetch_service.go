package services

import (
	"context"
	"sort"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchPageSize    = 100
	defaultFetchConcurrency = 4
)

// PageFetcher получает одну страницу ресурса
type PageFetcher[T any] func(ctx context.Context, page, size int) (*models.Page[T], error)

// PageSink получает страницы по мере их загрузки.
// Вызывается последовательно из одной горутины
type PageSink[T any] func(ctx context.Context, page *models.Page[T])

// FetchConfig настройки постраничной выборки
type FetchConfig struct {
	PageSize    int
	Concurrency int // одновременных запросов страниц
	LimitPages  int // 0 без ограничения
}

// FetchRequest параметры одной выборки
type FetchRequest[T any] struct {
	Resource   models.Resource
	Fetch      PageFetcher[T]
	Sink       PageSink[T] // может быть nil
	LimitPages int         // переопределяет FetchConfig.LimitPages, если больше 0
}

// FetchService обходит все страницы ресурса, изолируя ошибки отдельных страниц
type FetchService struct {
	cfg    FetchConfig
	logger interfaces.LoggerPort
}

// NewFetchService создает сервис постраничной выборки
func NewFetchService(cfg FetchConfig, logger interfaces.LoggerPort) *FetchService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultFetchPageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultFetchConcurrency
	}
	return &FetchService{cfg: cfg, logger: logger}
}

type pageOutcome[T any] struct {
	page int
	data *models.Page[T]
	err  error
}

// FetchAll загружает страницу 0, узнает количество страниц и загружает остальные
// с ограниченной параллельностью.
//
// Ошибка отдельной страницы попадает в FailedPages и не прерывает выборку.
// Ошибка возвращается только если страница 0 не получена из-за ключей или некорректного запроса,
// либо если истек контекст: тогда вместе с ошибкой возвращается уже собранный результат.
// Записи склеиваются в порядке страниц.
func FetchAll[T any](ctx context.Context, s *FetchService, req FetchRequest[T]) (*models.FetchResult[T], error) {
	size := s.cfg.PageSize
	log := s.logger.WithField("resource", string(req.Resource))
	result := &models.FetchResult[T]{}

	first, err := req.Fetch(ctx, 0, size)
	if err != nil {
		if ctx.Err() != nil {
			return result, apperrors.Wrap(apperrors.KindTimeout, "fetch all", ctx.Err())
		}
		if isAccountLevel(err) {
			return nil, err
		}
		log.WarnWithContext(ctx, "Не удалось получить первую страницу", "error", err.Error())
		result.FailedPages = []models.PageFailure{{Page: 0, Error: err.Error()}}
		return result, nil
	}

	result.TotalPages = first.TotalPages
	result.TotalElements = first.TotalElements
	if req.Sink != nil {
		req.Sink(ctx, first)
	}

	limit := req.LimitPages
	if limit <= 0 {
		limit = s.cfg.LimitPages
	}
	last := utils.PagesToFetch(first.TotalPages, limit)

	pages := map[int]*models.Page[T]{0: first}

	if last > 1 {
		outcomes := make(chan pageOutcome[T])
		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			g, gctx := errgroup.WithContext(fetchCtx)
			g.SetLimit(s.cfg.Concurrency)
			for p := 1; p < last; p++ {
				if gctx.Err() != nil {
					break
				}
				page := p
				g.Go(func() error {
					data, err := req.Fetch(gctx, page, size)
					select {
					case outcomes <- pageOutcome[T]{page: page, data: data, err: err}:
					case <-gctx.Done():
					}
					return nil
				})
			}
			_ = g.Wait()
			close(outcomes)
		}()

		for o := range outcomes {
			// после отмены контекста незавершенные страницы отбрасываются
			if ctx.Err() != nil {
				continue
			}
			if o.err != nil {
				log.WarnWithContext(ctx, "Страница не получена, выборка продолжается",
					"page", o.page,
					"error", o.err.Error(),
				)
				result.FailedPages = append(result.FailedPages, models.PageFailure{Page: o.page, Error: o.err.Error()})
				continue
			}
			pages[o.page] = o.data
			if req.Sink != nil {
				req.Sink(ctx, o.data)
			}
		}
	}

	for p := 0; p < last || p == 0; p++ {
		if data, ok := pages[p]; ok {
			result.Records = append(result.Records, data.Items...)
		}
	}
	result.TotalFetched = len(result.Records)
	sort.Slice(result.FailedPages, func(i, j int) bool {
		return result.FailedPages[i].Page < result.FailedPages[j].Page
	})

	if ctx.Err() != nil {
		return result, apperrors.Wrap(apperrors.KindTimeout, "fetch all", ctx.Err())
	}

	log.DebugWithContext(ctx, "Выборка завершена",
		"pages", last,
		"records", result.TotalFetched,
		"failed_pages", len(result.FailedPages),
	)
	return result, nil
}

// isAccountLevel ошибки, при которых остальные страницы запрашивать бессмысленно
func isAccountLevel(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindAuthentication, apperrors.KindValidation:
		return true
	default:
		return false
	}
}
