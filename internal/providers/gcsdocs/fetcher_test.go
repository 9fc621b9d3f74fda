package gcsdocs

import "testing"

func TestSplitGCSURI_ValidURI(t *testing.T) {
	bucket, object, err := splitGCSURI("gs://numa-documents/receipts/tx1.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bucket != "numa-documents" || object != "receipts/tx1.pdf" {
		t.Errorf("expected bucket=numa-documents object=receipts/tx1.pdf, got bucket=%s object=%s", bucket, object)
	}
}

func TestSplitGCSURI_RejectsNonGCSScheme(t *testing.T) {
	if _, _, err := splitGCSURI("https://example.com/file.pdf"); err == nil {
		t.Fatal("expected an error for a non gs:// uri")
	}
}

func TestSplitGCSURI_RejectsMissingObject(t *testing.T) {
	if _, _, err := splitGCSURI("gs://numa-documents"); err == nil {
		t.Fatal("expected an error for a uri with no object path")
	}
}

func TestSplitGCSURI_RejectsMissingBucket(t *testing.T) {
	if _, _, err := splitGCSURI("gs:///object.pdf"); err == nil {
		t.Fatal("expected an error for a uri with an empty bucket")
	}
}
