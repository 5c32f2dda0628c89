// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" validate:"required,max=8"`
	Days  []int  `json:"repeatOnDays" validate:"dive,weekday"`
	List  string `json:"list" validate:"omitempty,listkind"`
	Limit int    `json:"limit" validate:"gte=0,lte=10"`
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{name: "valid", in: sample{Name: "ok", Days: []int{0, 6}, List: "planToRead"}},
		{name: "missing name", in: sample{}, wantField: "name", wantMsg: "name is required"},
		{name: "name too long", in: sample{Name: "abcdefghij"}, wantField: "name", wantMsg: "at most 8 characters"},
		{name: "bad weekday", in: sample{Name: "x", Days: []int{7}}, wantField: "repeatOnDays[0]", wantMsg: "weekday number"},
		{name: "bad list", in: sample{Name: "x", List: "dropped"}, wantField: "list", wantMsg: "must be one of planToWatch"},
		{name: "limit too big", in: sample{Name: "x", Limit: 11}, wantField: "limit", wantMsg: "less than or equal to 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.in)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if got := verr.Fields[0].Field; got != tt.wantField {
				t.Errorf("Field = %q, want %q", got, tt.wantField)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want substring %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	verr := ValidateStruct(&sample{Limit: 20})
	if verr == nil {
		t.Fatal("expected validation failure")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Errorf("multi-field error should list fields, got %v", apiErr.Details)
	}
}
