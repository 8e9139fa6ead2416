package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOptionalDistinguishesAbsentFromPresent(t *testing.T) {
	var body struct {
		Rating  Optional[int]  `json:"rating"`
		Helpful Optional[bool] `json:"helpful"`
	}
	if err := json.Unmarshal([]byte(`{"helpful": false}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Rating.Present() {
		t.Fatalf("rating should be absent")
	}
	v, ok := body.Helpful.Get()
	if !ok || v {
		t.Fatalf("helpful should be present and false, got %v %v", v, ok)
	}
}

func TestOptionalRejectsNull(t *testing.T) {
	var body struct {
		Rating Optional[int] `json:"rating"`
	}
	err := json.Unmarshal([]byte(`{"rating": null}`), &body)
	if !errors.Is(err, ErrNullValue) {
		t.Fatalf("expected ErrNullValue, got %v", err)
	}
}

func TestAnnotationEmpty(t *testing.T) {
	if !(Annotation{}).Empty() {
		t.Fatalf("zero annotation should be empty")
	}
	if (Annotation{UserRating: Some(3)}).Empty() {
		t.Fatalf("annotation with rating should not be empty")
	}
	if (Annotation{UserFoundHelpful: None[bool]()}).Empty() == false {
		t.Fatalf("annotation with absent fields should be empty")
	}
}
