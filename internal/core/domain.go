package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"
)

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

type (
	TransactionType string
	Frequency       string

	// ID is an opaque server identifier. The backend emits numbers; the
	// client never does arithmetic on them.
	ID string

	Transaction struct {
		ID              ID              `json:"id,omitempty"`
		Type            TransactionType `json:"type"`
		Amount          float64         `json:"amount"`
		Description     string          `json:"description,omitempty"`
		TransactionDate string          `json:"transactionDate,omitempty"`
		CategoryID      ID              `json:"categoryId,omitempty"`
		CategoryName    string          `json:"categoryName,omitempty"`
		AccountID       ID              `json:"accountId,omitempty"`
		AccountType     string          `json:"accountType,omitempty"`
		Username        string          `json:"username,omitempty"`
		UserEmail       string          `json:"userEmail,omitempty"`
		CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	}

	Category struct {
		ID          ID              `json:"id,omitempty"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Type        TransactionType `json:"type,omitempty"`
		Color       string          `json:"color,omitempty"`
	}

	Account struct {
		ID      ID      `json:"id,omitempty"`
		Name    string  `json:"name"`
		Type    string  `json:"type,omitempty"`
		Balance float64 `json:"balance"`
	}

	Budget struct {
		ID        ID        `json:"id,omitempty"`
		Amount    float64   `json:"amount"`
		Period    string    `json:"period,omitempty"`
		StartDate string    `json:"startDate,omitempty"`
		EndDate   string    `json:"endDate,omitempty"`
		Category  *Category `json:"category,omitempty"`
	}

	RecurringTransaction struct {
		ID          ID              `json:"id,omitempty"`
		Type        TransactionType `json:"type"`
		Amount      float64         `json:"amount"`
		Description string          `json:"description,omitempty"`
		Frequency   Frequency       `json:"frequency"`
		StartDate   string          `json:"startDate,omitempty"`
		EndDate     string          `json:"endDate,omitempty"`
		NextDate    string          `json:"nextExecutionDate,omitempty"`
		CategoryID  ID              `json:"categoryId,omitempty"`
		AccountID   ID              `json:"accountId,omitempty"`
		Active      bool            `json:"active"`
	}

	Profile struct {
		ID        ID     `json:"id,omitempty"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Country   string `json:"country,omitempty"`
	}

	PasswordChange struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	AdminUser struct {
		ID            ID         `json:"id"`
		Username      string     `json:"username"`
		Email         string     `json:"email"`
		FirstName     string     `json:"firstName,omitempty"`
		LastName      string     `json:"lastName,omitempty"`
		Role          Role       `json:"role"`
		Blocked       bool       `json:"blocked,omitempty"`
		GroupName     string     `json:"groupName,omitempty"`
		AdminUsername string     `json:"adminUsername,omitempty"`
		CreatedAt     *time.Time `json:"createdAt,omitempty"`
	}

	NewUser struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
	}

	UserGroup struct {
		ID          ID         `json:"id,omitempty"`
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
		CreatedAt   *time.Time `json:"createdAt,omitempty"`
	}

	SystemStats struct {
		TotalUsers        int64 `json:"totalUsers"`
		TotalTransactions int64 `json:"totalTransactions"`
		TotalCategories   int64 `json:"totalCategories"`
	}

	EmailBroadcast struct {
		RecipientIDs []ID   `json:"recipientIds"`
		Subject      string `json:"subject"`
		Message      string `json:"message"`
	}

	EmailBroadcastResult struct {
		SentCount int `json:"sentCount"`
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDateRange = errors.New("end date before start date")
	ErrNoRecipients     = errors.New("at least one recipient is required")
)

func (id ID) String() string { return string(id) }

// MarshalJSON emits numeric identifiers as JSON numbers so they round-trip
// with the backend's Long ids.
func (id ID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s == "" {
		return []byte(`""`), nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return json.Marshal(s)
		}
	}
	return []byte(s), nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Label returns the display label used in tables and exports.
func (t TransactionType) Label() string {
	switch t {
	case Expense:
		return "Expense"
	case Income:
		return "Income"
	}
	return string(t)
}

func (t Transaction) Validate() error {
	if t.Type != Expense && t.Type != Income {
		return ErrInvalidType
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.TransactionDate != "" {
		if _, err := time.Parse(DateLayout, t.TransactionDate); err != nil {
			return errors.New("invalid transaction date: " + err.Error())
		}
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r RecurringTransaction) Validate() error {
	if r.Type != Expense && r.Type != Income {
		return ErrInvalidType
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	switch r.Frequency {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidFrequency
	}
	return nil
}

func (g UserGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (e EmailBroadcast) Validate() error {
	if len(e.RecipientIDs) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(e.Subject) == "" || strings.TrimSpace(e.Message) == "" {
		return errors.New("subject and message are required")
	}
	return nil
}

// DateRange is the startDate/endDate filter accepted by analytics and search.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CurrentMonth spans the first day of now's month through now.
func CurrentMonth(now time.Time) DateRange {
	return DateRange{
		Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
		End:   now,
	}
}

// LastMonths spans n months back from now through now.
func LastMonths(now time.Time, n int) DateRange {
	return DateRange{Start: now.AddDate(0, -n, 0), End: now}
}

// ParseDateRange parses two yyyy-MM-dd strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, errors.New("invalid start date: " + err.Error())
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, errors.New("invalid end date: " + err.Error())
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

// Params renders the range as query parameters.
func (r DateRange) Params() map[string]string {
	return map[string]string{
		"startDate": r.Start.Format(DateLayout),
		"endDate":   r.End.Format(DateLayout),
	}
}
