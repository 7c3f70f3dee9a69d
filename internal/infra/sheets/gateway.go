package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"sheets-quiz-service/internal/domain"
)

// Layout of the backing spreadsheet, one tab per logical table.
const (
	settingsRange  = "Settings!A2:B10"
	questionsRange = "Questions!A2:G"
	allowlistRange = "Allowlist!A2:A"
	resultsRange   = "Results!A2:A"
	appendRange    = "Results!A2"
)

// Gateway talks to the Google Sheets API with service-account credentials. It
// implements app.Gateway.
type Gateway struct {
	svc *sheetsapi.Service
}

// New builds a gateway from a service-account JSON key.
func New(ctx context.Context, credentialsJSON []byte) (*Gateway, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &Gateway{svc: svc}, nil
}

// FetchQuiz reads the Settings and Questions tabs. Zero usable question rows
// is a hard failure, not an empty quiz.
func (g *Gateway) FetchQuiz(ctx context.Context, spreadsheetID string) (domain.QuizContent, error) {
	settingsResp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, settingsRange).Context(ctx).Do()
	if err != nil {
		return domain.QuizContent{}, mapErr("read settings", err)
	}
	questionsResp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, questionsRange).Context(ctx).Do()
	if err != nil {
		return domain.QuizContent{}, mapErr("read questions", err)
	}

	questions, err := ParseQuestions(questionsResp.Values)
	if err != nil {
		return domain.QuizContent{}, err
	}
	return domain.QuizContent{
		Settings:  ParseSettings(settingsResp.Values),
		Questions: questions,
	}, nil
}

// FetchAllowlist reads the Allowlist tab, lowercased. A missing tab is treated
// as an empty allowlist rather than a failure.
func (g *Gateway) FetchAllowlist(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, allowlistRange).Context(ctx).Do()
	if err != nil {
		if isBadRange(err) {
			return nil, nil
		}
		return nil, mapErr("read allowlist", err)
	}
	allowlist := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if email := strings.ToLower(strings.TrimSpace(cellString(row, 0))); email != "" {
			allowlist = append(allowlist, email)
		}
	}
	return allowlist, nil
}

// CountAttempts counts prior result rows recorded for an email.
func (g *Gateway) CountAttempts(ctx context.Context, spreadsheetID, email string) (int, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, resultsRange).Context(ctx).Do()
	if err != nil {
		if isBadRange(err) {
			return 0, nil
		}
		return 0, mapErr("read results", err)
	}
	count := 0
	for _, row := range resp.Values {
		if strings.EqualFold(strings.TrimSpace(cellString(row, 0)), email) {
			count++
		}
	}
	return count, nil
}

// AppendResult appends one result row to the Results tab.
func (g *Gateway) AppendResult(ctx context.Context, spreadsheetID string, result domain.QuizResult) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("serialize answers: %w", err)
	}
	values := &sheetsapi.ValueRange{
		Values: [][]interface{}{{
			result.UserEmail,
			result.UserName,
			result.Score,
			result.TotalQuestions,
			result.StartTime,
			result.EndTime,
			string(answers),
		}},
	}
	_, err = g.svc.Spreadsheets.Values.Append(spreadsheetID, appendRange, values).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return mapErr("append result", err)
	}
	return nil
}

// mapErr keeps "not found" and "access denied" distinguishable for operators
// where the transport exposes that distinction.
func mapErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, domain.ErrSpreadsheetNotFound)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, domain.ErrAccessDenied)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isBadRange detects the API's rejection of a range whose tab does not exist.
func isBadRange(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest
}
