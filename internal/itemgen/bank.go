package itemgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abhisek/gradeprobe/internal/assessment"
)

// ErrBankExhausted is returned when no bank item matches a request.
var ErrBankExhausted = errors.New("item bank exhausted")

// BankItem is one entry of an item bank file.
type BankItem struct {
	ID            string   `json:"id" validate:"required"`
	Subject       string   `json:"subject"`
	Text          string   `json:"text" validate:"required,max=500"`
	Kind          string   `json:"kind" validate:"required,oneof=multiple_choice short_answer"`
	Choices       []string `json:"choices,omitempty" validate:"omitempty,min=2,max=6,dive,required"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	SkillCode     string   `json:"skill_code" validate:"required,max=64"`
	Domain        string   `json:"domain" validate:"required"`
	Difficulty    float64  `json:"difficulty" validate:"gte=0,lte=12"`
}

// Bank serves items from a fixed, pre-authored set. It never generates
// anything and is safe for concurrent use.
type Bank struct {
	items []*assessment.Item
	subj  []string
}

var _ assessment.ItemProvider = (*Bank)(nil)

// LoadBank reads a JSON array of BankItem from path.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item bank: %w", err)
	}
	var items []BankItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse item bank %s: %w", path, err)
	}
	return NewBank(items)
}

// NewBank validates items and builds a Bank. IDs must be unique.
func NewBank(items []BankItem) (*Bank, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	structural := &StructuralValidator{}

	b := &Bank{}
	ids := make(map[string]bool, len(items))
	for i, bi := range items {
		if err := validate.Struct(bi); err != nil {
			return nil, fmt.Errorf("bank item %d: %w", i+1, err)
		}
		if ids[bi.ID] {
			return nil, fmt.Errorf("bank item %d: duplicate id %q", i+1, bi.ID)
		}
		ids[bi.ID] = true

		d := &Draft{
			Text:          bi.Text,
			Kind:          bi.Kind,
			Choices:       bi.Choices,
			CorrectAnswer: bi.CorrectAnswer,
			SkillCode:     bi.SkillCode,
			Domain:        bi.Domain,
			Difficulty:    bi.Difficulty,
		}
		if verr := structural.Validate(d, assessment.ItemRequest{}); verr != nil {
			return nil, fmt.Errorf("bank item %s: %w", bi.ID, verr)
		}
		item, err := toItem(bi.ID, d)
		if err != nil {
			return nil, fmt.Errorf("bank item %s: %w", bi.ID, err)
		}
		b.items = append(b.items, item)
		b.subj = append(b.subj, strings.TrimSpace(bi.Subject))
	}
	return b, nil
}

// Len returns the number of items in the bank.
func (b *Bank) Len() int {
	return len(b.items)
}

// RequestItem returns the item closest to the requested difficulty whose
// subject matches and whose skill code is not excluded. Ties go to the item
// listed first. Items without a subject match every subject.
func (b *Bank) RequestItem(ctx context.Context, req assessment.ItemRequest) (*assessment.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := -1
	bestDist := math.Inf(1)
	for i, it := range b.items {
		if b.subj[i] != "" && !strings.EqualFold(b.subj[i], req.Subject) {
			continue
		}
		if req.Excludes(it.SkillCode) {
			continue
		}
		if dist := math.Abs(it.Difficulty - req.Difficulty); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: no %q item outside %d excluded skill codes", ErrBankExhausted, req.Subject, len(req.ExcludedSkillCodes))
	}

	out := *b.items[best]
	if mc, ok := out.Kind.(assessment.MultipleChoice); ok {
		out.Kind = assessment.MultipleChoice{Choices: append([]string(nil), mc.Choices...)}
	}
	return &out, nil
}
