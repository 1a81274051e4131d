package safe

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestValidateDimensions(t *testing.T) {
	if err := ValidateDimensions(512, 512, "test"); err != nil {
		t.Errorf("valid dimensions rejected: %v", err)
	}
	if err := ValidateDimensions(0, 512, "test"); err == nil {
		t.Error("zero width accepted")
	}
	if err := ValidateDimensions(512, -3, "test"); err == nil {
		t.Error("negative height accepted")
	}
	if err := ValidateDimensions(40000, 512, "test"); err == nil {
		t.Error("oversized width accepted")
	}
}

func TestValidateMatForOperation(t *testing.T) {
	if err := ValidateMatForOperation(nil, "test"); err == nil {
		t.Error("nil Mat accepted")
	}

	mat, err := NewMat(4, 4, gocv.MatTypeCV8UC1)
	if err != nil {
		t.Fatalf("NewMat: %v", err)
	}
	if err := ValidateMatForOperation(mat, "test"); err != nil {
		t.Errorf("valid Mat rejected: %v", err)
	}

	mat.Close()
	if err := ValidateMatForOperation(mat, "test"); err == nil {
		t.Error("closed Mat accepted")
	}
}
