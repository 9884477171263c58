package letters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shavivco/backoffice_backend/config"
)

// TemplateStore fetches raw letter HTML by template type. The body is opaque
// markup containing placeholders; the store never parses it.
type TemplateStore interface {
	FetchTemplate(ctx context.Context, templateType TemplateType) (string, error)
}

// templateFiles maps each template type to its standalone HTML file in the
// template library.
var templateFiles = map[TemplateType]string{
	TemplateExternalIndexOnly:  "external-index-only.html",
	TemplateExternalRealChange: "external-real-change.html",
	TemplateExternalAsAgreed:   "external-as-agreed.html",

	TemplateInternalAuditIndex:  "internal-audit-index.html",
	TemplateInternalAuditReal:   "internal-audit-real.html",
	TemplateInternalAuditAgreed: "internal-audit-agreed.html",

	TemplateRetainerIndex:  "retainer-index.html",
	TemplateRetainerReal:   "retainer-real.html",
	TemplateRetainerAgreed: "retainer-agreed.html",

	TemplateInternalBookkeepingIndex:  "internal-bookkeeping-index.html",
	TemplateInternalBookkeepingReal:   "internal-bookkeeping-real.html",
	TemplateInternalBookkeepingAgreed: "internal-bookkeeping-agreed.html",
}

// TemplateFileName returns the library filename for a template type.
func TemplateFileName(templateType TemplateType) (string, error) {
	name, ok := templateFiles[templateType]
	if !ok {
		return "", fmt.Errorf("unknown template type %q", templateType)
	}
	return name, nil
}

// HTTPTemplateStore fetches templates from a static-asset endpoint, caching
// each body in redis. Template bodies change rarely; the TTL keeps a stale
// cache from outliving an edit for long.
type HTTPTemplateStore struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTemplateStore reads LETTER_TEMPLATE_BASE_URL.
func NewHTTPTemplateStore() (*HTTPTemplateStore, error) {
	baseURL := strings.TrimSpace(os.Getenv("LETTER_TEMPLATE_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("LETTER_TEMPLATE_BASE_URL is required")
	}
	return &HTTPTemplateStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *HTTPTemplateStore) FetchTemplate(ctx context.Context, templateType TemplateType) (string, error) {
	fileName, err := TemplateFileName(templateType)
	if err != nil {
		return "", err
	}

	cacheKey := "LetterTemplate:" + fileName
	if body, found, err := config.GetRedisValue(cacheKey); err == nil && found {
		return body, nil
	}

	httpClient := s.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/"+fileName, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch template %s: %w", fileName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch template %s: status %d", fileName, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	body := string(data)
	_ = config.SetRedisValue(cacheKey, body, 10*time.Minute)
	return body, nil
}
