package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/letters"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
)

// SendRequest is the input contract of the external send function.
type SendRequest struct {
	LetterId     int               `json:"letter_id"`
	ClientId     int               `json:"client_id"`
	TemplateType string            `json:"template_type"`
	Recipients   []string          `json:"recipients"`
	Variables    map[string]string `json:"variables"`
	Html         string            `json:"html"`
}

// SendFunc dispatches a rendered letter by email. The transport itself is an
// external collaborator; only its input contract lives here.
type SendFunc func(ctx context.Context, req SendRequest) error

// RenderPdfFunc turns letter HTML into PDF bytes via the external render
// function.
type RenderPdfFunc func(ctx context.Context, html string) ([]byte, error)

// LetterWorkflow orchestrates preview, draft, send and filing of generated
// letters. Data access goes through function fields so tests can run without
// a database.
type LetterWorkflow struct {
	Templates letters.TemplateStore
	Send      SendFunc
	RenderPdf RenderPdfFunc

	getFee     func(ctx context.Context, id int) (*models.FeeCalculation, error)
	getFirm    func(ctx context.Context) (*models.Firm, error)
	saveDraft  func(ctx context.Context, input *models.NewGeneratedLetter) (*models.GeneratedLetter, bool, error)
	getLetter  func(ctx context.Context, id int) (*models.GeneratedLetter, error)
	markSent   func(ctx context.Context, id int, recipients []string) (*models.GeneratedLetter, error)
	getClient  func(ctx context.Context, id int) (*models.Client, error)
	savePdfKey func(ctx context.Context, id int, objectKey string) error
	filePdf    func(ctx context.Context, objectKey string, data []byte) error
}

func NewLetterWorkflow(templates letters.TemplateStore, send SendFunc, renderPdf RenderPdfFunc) *LetterWorkflow {
	return &LetterWorkflow{
		Templates:  templates,
		Send:       send,
		RenderPdf:  renderPdf,
		getFee:     models.GetFeeCalculation,
		getFirm:    models.GetFirm,
		saveDraft:  models.CreateOrReuseDraftLetter,
		getLetter:  models.GetLetter,
		markSent:   models.MarkLetterSent,
		getClient:  models.GetClient,
		savePdfKey: models.SetLetterPdfObjectKey,
		filePdf: func(ctx context.Context, objectKey string, data []byte) error {
			return utils.SaveObjectToGCS(ctx, objectKey, "application/pdf", data)
		},
	}
}

type BuildRequest struct {
	FeeCalculationId int           `json:"fee_calculation_id" binding:"required"`
	Stage            letters.Stage `json:"stage"`
	TemplateOverride *string       `json:"template_override"`
}

type PreviewResult struct {
	TemplateType  string            `json:"template_type"`
	Html          string            `json:"html"`
	Text          string            `json:"text"`
	Variables     map[string]string `json:"variables"`
	MissingFields []string          `json:"missing_fields"`
}

// buildRender runs the variable builder and fills the template. The returned
// HTML keeps cid: tokens unresolved; only the preview surface resolves them.
func (w *LetterWorkflow) buildRender(ctx context.Context, req BuildRequest) (*letters.BuildResult, string, *models.FeeCalculation, error) {
	fee, err := w.getFee(ctx, req.FeeCalculationId)
	if err != nil {
		return nil, "", nil, letters.ErrDataMissing
	}
	if fee.Client == nil {
		return nil, "", nil, letters.ErrDataMissing
	}
	firm, err := w.getFirm(ctx)
	if err != nil {
		firm = nil
	}

	stage := req.Stage
	if stage == "" {
		stage = letters.StagePrimary
	}
	var override *letters.TemplateType
	if req.TemplateOverride != nil && *req.TemplateOverride != "" {
		t := letters.TemplateType(*req.TemplateOverride)
		override = &t
	}

	result, err := letters.BuildVariables(letters.BuildInput{
		Client:           fee.Client,
		Fee:              fee,
		Firm:             firm,
		Stage:            stage,
		TemplateOverride: override,
	})
	if err != nil {
		return nil, "", nil, err
	}

	body, err := w.Templates.FetchTemplate(ctx, result.TemplateType)
	if err != nil {
		return nil, "", nil, err
	}
	html := letters.ReplaceVariables(letters.SanitizeHTML(body), result.Variables)
	return result, html, fee, nil
}

// Preview builds and renders a letter without persisting anything. The
// preview HTML has its image tokens resolved for display.
func (w *LetterWorkflow) Preview(ctx context.Context, req BuildRequest) (*PreviewResult, error) {
	result, html, _, err := w.buildRender(ctx, req)
	if err != nil {
		return nil, err
	}
	display := letters.ResolveImageTokens(html)
	return &PreviewResult{
		TemplateType:  string(result.TemplateType),
		Html:          display,
		Text:          letters.HTMLToText(display),
		Variables:     result.Variables,
		MissingFields: result.MissingFields,
	}, nil
}

// SaveDraft builds, renders and persists (or refreshes) the draft for a fee
// calculation. Returns the draft and whether an existing one was reused.
func (w *LetterWorkflow) SaveDraft(ctx context.Context, req BuildRequest) (*models.GeneratedLetter, bool, error) {
	result, html, fee, err := w.buildRender(ctx, req)
	if err != nil {
		return nil, false, err
	}

	variablesJSON, err := utils.MarshalToJSON(result.Variables)
	if err != nil {
		return nil, false, err
	}

	stage := req.Stage
	if stage == "" {
		stage = letters.StagePrimary
	}
	return w.saveDraft(ctx, &models.NewGeneratedLetter{
		ClientId:             fee.ClientId,
		FeeCalculationId:     &fee.ID,
		TemplateType:         string(result.TemplateType),
		Stage:                string(stage),
		VariablesUsed:        variablesJSON,
		GeneratedContentHtml: html,
	})
}

type SendInput struct {
	LetterId         int      `json:"letter_id" binding:"required"`
	ManualEmails     []string `json:"manual_emails"`
	IncludeReviewers bool     `json:"include_reviewers"`
}

// AssembleRecipients unions the enabled contact emails, the manually added
// addresses and (when toggled) the fixed reviewer addresses, deduplicated.
// Every address must pass validation.
func AssembleRecipients(contacts []*models.ContactPerson, manual []string, includeReviewers bool) ([]string, error) {
	var recipients []string
	for _, contact := range contacts {
		if contact.Email == "" {
			continue
		}
		if contact.EmailEnabled != nil && !*contact.EmailEnabled {
			continue
		}
		recipients = append(recipients, strings.TrimSpace(contact.Email))
	}
	for _, email := range manual {
		email = strings.TrimSpace(email)
		if email != "" {
			recipients = append(recipients, email)
		}
	}
	if includeReviewers {
		recipients = append(recipients, config.ReviewerEmails()...)
	}

	recipients = utils.UniqueSlice(recipients)
	for _, email := range recipients {
		if !utils.IsValidEmail(email) {
			return nil, fmt.Errorf("invalid recipient email %q", email)
		}
	}
	return recipients, nil
}

// SendLetter dispatches a saved draft. The draft must exist before send is
// attempted: send references the draft id, which is what prevents duplicate
// letters for one calculation.
//
// After a successful send the letter is marked sent_email and PDF filing runs
// as a best-effort follow-up; a filing failure never rolls the status back.
func (w *LetterWorkflow) SendLetter(ctx context.Context, input SendInput) (*models.GeneratedLetter, error) {
	letter, err := w.getLetter(ctx, input.LetterId)
	if err != nil {
		return nil, errors.New("letter draft not found")
	}
	if letter.Status != models.LetterStatusDraft {
		return nil, errors.New("letter has already been sent")
	}

	client, err := w.getClient(ctx, letter.ClientId)
	if err != nil {
		return nil, letters.ErrDataMissing
	}
	recipients, err := AssembleRecipients(client.ContactPersons, input.ManualEmails, input.IncludeReviewers)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, errors.New("letter has no recipients")
	}

	var variables map[string]string
	if letter.VariablesUsed != "" {
		if err := utils.UnmarshalFromJSON([]byte(letter.VariablesUsed), &variables); err != nil {
			return nil, err
		}
	}
	if missing := letters.MissingRequiredFields(letters.TemplateType(letter.TemplateType), variables); len(missing) > 0 {
		return nil, fmt.Errorf("letter is missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := w.Send(ctx, SendRequest{
		LetterId:     letter.ID,
		ClientId:     letter.ClientId,
		TemplateType: letter.TemplateType,
		Recipients:   recipients,
		Variables:    variables,
		Html:         letter.GeneratedContentHtml,
	}); err != nil {
		return nil, err
	}

	sent, err := w.markSent(ctx, letter.ID, recipients)
	if err != nil {
		// The email went out; the letter is sent even if bookkeeping failed.
		logger := config.GetLogger()
		config.LogError(logger, "workflow", "SendLetter", "mark sent failed after dispatch", letter.ID, err)
		return letter, nil
	}

	w.filePdfBestEffort(ctx, sent)
	return sent, nil
}

// filePdfBestEffort renders and files the sent letter as a PDF. Failures are
// logged and swallowed: email delivery is the source of truth.
func (w *LetterWorkflow) filePdfBestEffort(ctx context.Context, letter *models.GeneratedLetter) {
	if !config.LetterPdfFilingEnabled() || w.RenderPdf == nil {
		return
	}
	logger := config.GetLogger()

	// PDF generation re-resolves the stored cid: tokens.
	html := letters.ResolveImageTokens(letter.GeneratedContentHtml)
	data, err := w.RenderPdf(ctx, html)
	if err != nil {
		config.LogError(logger, "workflow", "filePdfBestEffort", "render failed", letter.ID, err)
		return
	}

	objectKey := fmt.Sprintf("letters/%s/%d-v%d.pdf", letter.FirmId, letter.ID, letter.VersionNumber)
	if err := w.filePdf(ctx, objectKey, data); err != nil {
		config.LogError(logger, "workflow", "filePdfBestEffort", "upload failed", letter.ID, err)
		return
	}
	if err := w.savePdfKey(ctx, letter.ID, objectKey); err != nil {
		config.LogError(logger, "workflow", "filePdfBestEffort", "record object key failed", letter.ID, err)
	}
}

// Regenerate rebuilds a letter from its source records. When the letter is
// still a draft its content is refreshed in place; when it was already sent a
// new version is created and marked latest.
func (w *LetterWorkflow) Regenerate(ctx context.Context, letterId int) (*models.GeneratedLetter, bool, error) {
	letter, err := w.getLetter(ctx, letterId)
	if err != nil {
		return nil, false, errors.New("letter not found")
	}
	if letter.FeeCalculationId == nil {
		return nil, false, errors.New("letter has no fee calculation to rebuild from")
	}
	override := letter.TemplateType
	return w.SaveDraft(ctx, BuildRequest{
		FeeCalculationId: *letter.FeeCalculationId,
		Stage:            letters.Stage(letter.Stage),
		TemplateOverride: &override,
	})
}

// NewHTTPSendFunc posts the send request to the external mail function.
// Env: LETTER_SEND_URL.
func NewHTTPSendFunc() (SendFunc, error) {
	url := strings.TrimSpace(os.Getenv("LETTER_SEND_URL"))
	if url == "" {
		return nil, errors.New("LETTER_SEND_URL is required")
	}
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, req SendRequest) error {
		payload, err := json.Marshal(req)
		if err != nil {
			return err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("send letter: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("send letter: status %d: %s", resp.StatusCode, string(body))
		}
		return nil
	}, nil
}

// NewHTTPRenderPdfFunc posts letter HTML to the external PDF render function
// and returns the PDF bytes. Env: PDF_RENDER_URL.
func NewHTTPRenderPdfFunc() (RenderPdfFunc, error) {
	url := strings.TrimSpace(os.Getenv("PDF_RENDER_URL"))
	if url == "" {
		return nil, errors.New("PDF_RENDER_URL is required")
	}
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, html string) ([]byte, error) {
		payload, err := json.Marshal(map[string]string{"html": html})
		if err != nil {
			return nil, err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("render pdf: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}, nil
}
