package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/shavivco/backoffice_backend/letters"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

type fakeTemplateStore struct {
	body string
	err  error
}

func (s *fakeTemplateStore) FetchTemplate(ctx context.Context, templateType letters.TemplateType) (string, error) {
	return s.body, s.err
}

func newTestWorkflow(t *testing.T, letter *models.GeneratedLetter, client *models.Client) (*LetterWorkflow, *[]string) {
	t.Helper()
	var calls []string

	w := &LetterWorkflow{
		Templates: &fakeTemplateStore{body: "<p>[client_name]</p>"},
		Send: func(ctx context.Context, req SendRequest) error {
			calls = append(calls, "send")
			return nil
		},
		getLetter: func(ctx context.Context, id int) (*models.GeneratedLetter, error) {
			if letter == nil || letter.ID != id {
				return nil, utils.ErrorRecordNotFound
			}
			return letter, nil
		},
		getClient: func(ctx context.Context, id int) (*models.Client, error) {
			if client == nil {
				return nil, utils.ErrorRecordNotFound
			}
			return client, nil
		},
		markSent: func(ctx context.Context, id int, recipients []string) (*models.GeneratedLetter, error) {
			calls = append(calls, "markSent")
			sent := *letter
			sent.Status = models.LetterStatusSentEmail
			sent.RecipientEmails = recipients
			return &sent, nil
		},
		savePdfKey: func(ctx context.Context, id int, objectKey string) error { return nil },
		filePdf:    func(ctx context.Context, objectKey string, data []byte) error { return nil },
	}
	return w, &calls
}

func draftLetter() *models.GeneratedLetter {
	variables, _ := utils.MarshalToJSON(map[string]string{
		"client_name":     "Test Client Ltd",
		"amount_with_vat": "11,800",
	})
	return &models.GeneratedLetter{
		ID:                   42,
		FirmId:               "firm-1",
		ClientId:             7,
		TemplateType:         string(letters.TemplateExternalAsAgreed),
		Stage:                "primary",
		VariablesUsed:        variables,
		GeneratedContentHtml: "<p>Test Client Ltd</p>",
		Status:               models.LetterStatusDraft,
		VersionNumber:        1,
	}
}

func clientWithContacts() *models.Client {
	enabled := true
	disabled := false
	return &models.Client{
		ID:   7,
		Name: "Test Client Ltd",
		ContactPersons: []*models.ContactPerson{
			{Name: "A", Email: "a@example.com", EmailEnabled: &enabled},
			{Name: "B", Email: "b@example.com", EmailEnabled: &disabled},
			{Name: "C", Email: "", EmailEnabled: &enabled},
		},
	}
}

func TestSendLetterHappyPath(t *testing.T) {
	letter := draftLetter()
	w, calls := newTestWorkflow(t, letter, clientWithContacts())

	sent, err := w.SendLetter(context.Background(), SendInput{LetterId: 42})
	if err != nil {
		t.Fatal(err)
	}
	if sent.Status != models.LetterStatusSentEmail {
		t.Fatalf("status = %s", sent.Status)
	}
	if !reflect.DeepEqual(*calls, []string{"send", "markSent"}) {
		t.Fatalf("call order = %v", *calls)
	}
	if !reflect.DeepEqual([]string(sent.RecipientEmails), []string{"a@example.com"}) {
		t.Fatalf("recipients = %v", sent.RecipientEmails)
	}
}

func TestSendLetterRequiresExistingDraft(t *testing.T) {
	w, calls := newTestWorkflow(t, nil, clientWithContacts())
	if _, err := w.SendLetter(context.Background(), SendInput{LetterId: 42}); err == nil {
		t.Fatal("expected error for missing draft")
	}
	if len(*calls) != 0 {
		t.Fatalf("nothing must be dispatched without a draft: %v", *calls)
	}
}

func TestSendLetterRejectsAlreadySent(t *testing.T) {
	letter := draftLetter()
	letter.Status = models.LetterStatusSentEmail
	w, calls := newTestWorkflow(t, letter, clientWithContacts())

	if _, err := w.SendLetter(context.Background(), SendInput{LetterId: 42}); err == nil {
		t.Fatal("expected error for sent letter")
	}
	if len(*calls) != 0 {
		t.Fatalf("unexpected calls: %v", *calls)
	}
}

func TestSendLetterNoRecipients(t *testing.T) {
	letter := draftLetter()
	client := &models.Client{ID: 7, Name: "Test Client Ltd"}
	w, calls := newTestWorkflow(t, letter, client)

	if _, err := w.SendLetter(context.Background(), SendInput{LetterId: 42}); err == nil {
		t.Fatal("expected error when no recipients resolve")
	}
	if len(*calls) != 0 {
		t.Fatalf("unexpected calls: %v", *calls)
	}
}

func TestSendLetterBlocksOnMissingRequiredFields(t *testing.T) {
	letter := draftLetter()
	variables, _ := utils.MarshalToJSON(map[string]string{"client_name": "Test Client Ltd"})
	letter.VariablesUsed = variables
	w, calls := newTestWorkflow(t, letter, clientWithContacts())

	_, err := w.SendLetter(context.Background(), SendInput{LetterId: 42})
	if err == nil || !strings.Contains(err.Error(), "amount_with_vat") {
		t.Fatalf("expected missing-field error, got %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("unexpected calls: %v", *calls)
	}
}

func TestSendLetterFailureDoesNotMarkSent(t *testing.T) {
	letter := draftLetter()
	w, calls := newTestWorkflow(t, letter, clientWithContacts())
	w.Send = func(ctx context.Context, req SendRequest) error {
		return errors.New("smtp down")
	}

	if _, err := w.SendLetter(context.Background(), SendInput{LetterId: 42}); err == nil {
		t.Fatal("expected send failure to surface")
	}
	for _, call := range *calls {
		if call == "markSent" {
			t.Fatal("letter must stay draft when dispatch fails")
		}
	}
}

func TestPdfFilingFailureKeepsLetterSent(t *testing.T) {
	t.Setenv("LETTER_PDF_FILING", "true")

	letter := draftLetter()
	w, _ := newTestWorkflow(t, letter, clientWithContacts())
	w.RenderPdf = func(ctx context.Context, html string) ([]byte, error) {
		return nil, errors.New("render service down")
	}

	sent, err := w.SendLetter(context.Background(), SendInput{LetterId: 42})
	if err != nil {
		t.Fatalf("pdf filing failure must not fail the send: %v", err)
	}
	if sent.Status != models.LetterStatusSentEmail {
		t.Fatalf("status = %s", sent.Status)
	}
}

func TestPdfFilingUploadsResolvedHtml(t *testing.T) {
	t.Setenv("LETTER_PDF_FILING", "true")

	letter := draftLetter()
	letter.GeneratedContentHtml = `<img src="cid:firm-logo"/>`

	var renderedHtml string
	var uploadedKey string
	w, _ := newTestWorkflow(t, letter, clientWithContacts())
	w.RenderPdf = func(ctx context.Context, html string) ([]byte, error) {
		renderedHtml = html
		return []byte("%PDF"), nil
	}
	w.filePdf = func(ctx context.Context, objectKey string, data []byte) error {
		uploadedKey = objectKey
		return nil
	}

	if _, err := w.SendLetter(context.Background(), SendInput{LetterId: 42}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(renderedHtml, "cid:firm-logo") {
		t.Fatalf("pdf render must receive resolved tokens: %q", renderedHtml)
	}
	if uploadedKey == "" || !strings.HasPrefix(uploadedKey, "letters/firm-1/") {
		t.Fatalf("object key = %q", uploadedKey)
	}
}

func TestAssembleRecipients(t *testing.T) {
	enabled := true
	contacts := []*models.ContactPerson{
		{Email: "a@example.com", EmailEnabled: &enabled},
		{Email: "b@example.com", EmailEnabled: &enabled},
	}

	got, err := AssembleRecipients(contacts, []string{"b@example.com", "c@example.com", " "}, false)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"a@example.com", "b@example.com", "c@example.com"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("got %v", got)
	}
}

func TestAssembleRecipientsReviewers(t *testing.T) {
	t.Setenv("LETTER_REVIEWER_EMAILS", "review@firm.co.il")

	got, err := AssembleRecipients(nil, []string{"a@example.com"}, true)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"a@example.com", "review@firm.co.il"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("got %v", got)
	}

	// Toggle off: reviewers stay out.
	got, err = AssembleRecipients(nil, []string{"a@example.com"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a@example.com"}) {
		t.Fatalf("got %v", got)
	}
}

func TestAssembleRecipientsRejectsInvalidEmail(t *testing.T) {
	if _, err := AssembleRecipients(nil, []string{"not-an-email"}, false); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPreviewResolvesImageTokens(t *testing.T) {
	fee := &models.FeeCalculation{
		ID:       11,
		ClientId: 7,
		Year:     2025,
		Client: &models.Client{
			ID:               7,
			Name:             "Test Client Ltd",
			InternalExternal: models.ClientTypeExternal,
		},
		FinalAmount: decimal.NewFromInt(10000),
	}

	w := &LetterWorkflow{
		Templates: &fakeTemplateStore{body: `<p>[client_name]</p><img src="cid:firm-logo"/>`},
		getFee: func(ctx context.Context, id int) (*models.FeeCalculation, error) {
			return fee, nil
		},
		getFirm: func(ctx context.Context) (*models.Firm, error) {
			return nil, utils.ErrorRecordNotFound
		},
	}

	preview, err := w.Preview(context.Background(), BuildRequest{FeeCalculationId: 11})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(preview.Html, "Test Client Ltd") {
		t.Fatalf("variables not substituted: %q", preview.Html)
	}
	if strings.Contains(preview.Html, "cid:firm-logo") {
		t.Fatalf("preview must resolve image tokens: %q", preview.Html)
	}
	if preview.TemplateType != string(letters.TemplateExternalAsAgreed) {
		t.Fatalf("template = %s", preview.TemplateType)
	}
}
