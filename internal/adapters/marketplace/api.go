package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/utils"
)

// MaxRejectDescription максимальная длина комментария при отказе
const MaxRejectDescription = 200

func sellerPath(creds models.Credentials, resource string) string {
	return "/suppliers/" + url.PathEscape(creds.SellerID) + "/" + resource
}

func fetchPage[D any, M any](
	ctx context.Context,
	c *Client,
	creds models.Credentials,
	op, path string,
	query url.Values,
	page, size int,
	toModel func(D, string) M,
) (*models.Page[M], error) {
	p := utils.NewPagination(page, size, MaxPageSize)
	if query == nil {
		query = url.Values{}
	}
	query.Set("page", strconv.Itoa(p.Page))
	query.Set("size", strconv.Itoa(p.PageSize))

	var resp pageDTO[D]
	if err := c.get(ctx, creds, request{op: op, path: path, query: query}, &resp); err != nil {
		return nil, err
	}

	items := make([]M, 0, len(resp.Content))
	for _, dto := range resp.Content {
		items = append(items, toModel(dto, creds.AccountID))
	}

	return &models.Page[M]{
		Items:         items,
		Page:          p.Page,
		Size:          p.PageSize,
		TotalPages:    resp.TotalPages,
		TotalElements: resp.TotalElements,
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// FetchProductsPage получает страницу товаров продавца
func (c *Client) FetchProductsPage(ctx context.Context, creds models.Credentials, page, size int) (*models.Page[models.CatalogItem], error) {
	return fetchPage(ctx, c, creds, "fetch_products", sellerPath(creds, "products"), nil, page, size, productDTO.toModel)
}

// FetchOrdersPage получает страницу заказов за интервал дат
func (c *Client) FetchOrdersPage(ctx context.Context, creds models.Credentials, window models.OrderWindow, page, size int) (*models.Page[models.Order], error) {
	query := url.Values{}
	if !window.Start.IsZero() {
		query.Set("startDate", strconv.FormatInt(window.Start.UnixMilli(), 10))
	}
	if !window.End.IsZero() {
		query.Set("endDate", strconv.FormatInt(window.End.UnixMilli(), 10))
	}
	query.Set("orderByField", "PackageLastModifiedDate")
	query.Set("orderByDirection", "DESC")

	return fetchPage(ctx, c, creds, "fetch_orders", sellerPath(creds, "orders"), query, page, size, orderDTO.toModel)
}

// FetchClaimsPage получает страницу заявок на возврат
func (c *Client) FetchClaimsPage(ctx context.Context, creds models.Credentials, page, size int) (*models.Page[models.Claim], error) {
	return fetchPage(ctx, c, creds, "fetch_claims", sellerPath(creds, "claims"), nil, page, size, claimDTO.toModel)
}

// TestConnection проверяет ключи самым легким запросом.
// Любая ошибка означает false, подробности только в логе
func (c *Client) TestConnection(ctx context.Context, creds models.Credentials) bool {
	if _, err := c.FetchProductsPage(ctx, creds, 0, 1); err != nil {
		c.logger.InfoWithContext(ctx, "Проверка подключения к маркетплейсу не пройдена",
			"seller_id", creds.SellerID,
			"kind", string(apperrors.KindOf(err)),
		)
		return false
	}
	return true
}

// FetchClaimReasons получает причины отказа в возврате
func (c *Client) FetchClaimReasons(ctx context.Context, creds models.Credentials) ([]models.RejectionReason, error) {
	var resp []rejectionReasonDTO
	if err := c.get(ctx, creds, request{op: "fetch_claim_reasons", path: "/claim-issue-reasons"}, &resp); err != nil {
		return nil, err
	}

	reasons := make([]models.RejectionReason, 0, len(resp))
	for _, r := range resp {
		reasons = append(reasons, models.RejectionReason{ID: r.ID, Name: r.Name})
	}
	return reasons, nil
}

// TransitionClaimItems одобряет или отклоняет позиции возврата.
// Запрос не повторяется: маркетплейс мог частично применить изменение
func (c *Client) TransitionClaimItems(ctx context.Context, creds models.Credentials, t models.ClaimTransition) error {
	if err := validateTransition(t); err != nil {
		return err
	}

	claimPath := sellerPath(creds, "claims") + "/" + url.PathEscape(t.ClaimID)

	switch t.Action {
	case models.ClaimApprove:
		return c.send(ctx, creds, request{
			op:     "approve_claim_items",
			method: http.MethodPut,
			path:   claimPath + "/items/approve",
			body: approveClaimItemsDTO{
				ClaimLineItemIDList: t.LineItemIDs,
				Params:              map[string]string{},
			},
		})
	default:
		query := url.Values{}
		query.Set("claimIssueReasonId", strconv.Itoa(t.ReasonID))
		query.Set("claimItemIdList", strings.Join(t.LineItemIDs, ","))
		query.Set("description", t.Description)
		return c.send(ctx, creds, request{
			op:     "reject_claim_items",
			method: http.MethodPost,
			path:   claimPath + "/issue",
			query:  query,
		})
	}
}

func validateTransition(t models.ClaimTransition) error {
	const op = "transition_claim_items"

	if t.ClaimID == "" {
		return apperrors.New(apperrors.KindValidation, op, "claim id is required")
	}
	if len(t.LineItemIDs) == 0 {
		return apperrors.New(apperrors.KindValidation, op, "at least one line item is required")
	}

	switch t.Action {
	case models.ClaimApprove:
		return nil
	case models.ClaimReject:
		if t.ReasonID <= 0 {
			return apperrors.New(apperrors.KindValidation, op, "reject requires a positive reason id")
		}
		n := utf8.RuneCountInString(strings.TrimSpace(t.Description))
		if n == 0 || n > MaxRejectDescription {
			return apperrors.Newf(apperrors.KindValidation, op, "description must be 1-%d characters", MaxRejectDescription)
		}
		return nil
	default:
		return apperrors.New(apperrors.KindValidation, op, fmt.Sprintf("unknown claim action %q", t.Action))
	}
}
