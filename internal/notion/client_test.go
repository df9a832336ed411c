package notion

import (
	"strings"
	"testing"
)

// TestQueryDatabase_SinglePage tests a database that fits in one query page.
func TestQueryDatabase_SinglePage(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	mockDB.AddRow(101)
	mockDB.AddRow(102)

	client := NewWithBaseURL("test-token", mockDB.URL)

	pages, err := client.QueryDatabase("db-1")
	if err != nil {
		t.Fatalf("QueryDatabase() unexpected error: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(pages))
	}
	for _, page := range pages {
		ref, ok := page.Properties["Issue Number"]
		if !ok {
			t.Fatalf("Page %s missing Issue Number property ref", page.ID)
		}
		if ref.ID == "" {
			t.Errorf("Page %s has empty property id", page.ID)
		}
	}
}

// TestQueryDatabase_CursorPagination tests that the continuation cursor is
// followed until exhausted.
func TestQueryDatabase_CursorPagination(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	// 5 rows with a page cap of 2 forces three query round trips
	mockDB.SetPageSize(2)
	for i := 1; i <= 5; i++ {
		mockDB.AddRow(i)
	}

	client := NewWithBaseURL("test-token", mockDB.URL)

	pages, err := client.QueryDatabase("db-1")
	if err != nil {
		t.Fatalf("QueryDatabase() unexpected error: %v", err)
	}

	if len(pages) != 5 {
		t.Fatalf("Expected 5 pages across cursors, got %d", len(pages))
	}

	seen := make(map[string]bool)
	for _, page := range pages {
		if seen[page.ID] {
			t.Errorf("Page %s returned more than once", page.ID)
		}
		seen[page.ID] = true
	}
}

// TestPageNumberProperty resolves a property reference to its value.
func TestPageNumberProperty(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	pageID := mockDB.AddRow(42)

	client := NewWithBaseURL("test-token", mockDB.URL)

	n, err := client.PageNumberProperty(pageID, "IssNum")
	if err != nil {
		t.Fatalf("PageNumberProperty() unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("Expected 42, got %d", n)
	}
}

// TestPageNumberProperty_NotFound tests error propagation for a bad reference.
func TestPageNumberProperty_NotFound(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	client := NewWithBaseURL("test-token", mockDB.URL)

	_, err := client.PageNumberProperty("no-such-page", "IssNum")
	if err == nil {
		t.Fatal("PageNumberProperty() expected error for unknown page, got nil")
	}
	if !strings.Contains(err.Error(), "404") && !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 404/not found error, got: %v", err)
	}
}

// TestCreatePage verifies create payload shape and id assignment.
func TestCreatePage(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	client := NewWithBaseURL("test-token", mockDB.URL)

	props := Properties{
		"Name":         Title("Broken build on main"),
		"Issue Number": Number(7),
		"State":        Select("open"),
	}

	pageID, err := client.CreatePage("db-1", props)
	if err != nil {
		t.Fatalf("CreatePage() unexpected error: %v", err)
	}
	if pageID == "" {
		t.Fatal("CreatePage() returned empty page id")
	}

	if mockDB.CreatedCount() != 1 {
		t.Errorf("Expected 1 created page, got %d", mockDB.CreatedCount())
	}
	if mockDB.RowProps(7) == nil {
		t.Errorf("Created row for issue 7 not found")
	}
}

// TestUpdatePage verifies property overwrite on an existing row.
func TestUpdatePage(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	pageID := mockDB.AddRow(7)

	client := NewWithBaseURL("test-token", mockDB.URL)

	props := Properties{
		"Issue Number":       Number(7),
		"Number of Comments": Number(4),
		"Follow Up":          Select("false"),
	}
	if err := client.UpdatePage(pageID, props); err != nil {
		t.Fatalf("UpdatePage() unexpected error: %v", err)
	}

	if mockDB.UpdatedCount() != 1 {
		t.Errorf("Expected 1 update, got %d", mockDB.UpdatedCount())
	}

	updated := mockDB.RowProps(7)
	if updated == nil {
		t.Fatal("Row for issue 7 not found after update")
	}
	if _, ok := updated["Follow Up"]; !ok {
		t.Errorf("Updated props missing Follow Up: %+v", updated)
	}
}

// TestUpdatePage_NotFound tests error propagation for an unknown page id.
func TestUpdatePage_NotFound(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	client := NewWithBaseURL("test-token", mockDB.URL)

	err := client.UpdatePage("no-such-page", Properties{"Issue Number": Number(1)})
	if err == nil {
		t.Fatal("UpdatePage() expected error for unknown page, got nil")
	}
}

// TestQueryDatabase_APIError tests error propagation on non-200 responses.
func TestQueryDatabase_APIError(t *testing.T) {
	mockDB := NewMockServer()
	defer mockDB.Close()

	mockDB.SetNextError(401, `{"message":"API token is invalid."}`)

	client := NewWithBaseURL("bad-token", mockDB.URL)

	_, err := client.QueryDatabase("db-1")
	if err == nil {
		t.Fatal("QueryDatabase() expected error for 401 response, got nil")
	}
	if !strings.Contains(err.Error(), "401") && !strings.Contains(err.Error(), "invalid") {
		t.Errorf("Expected 401/invalid token error, got: %v", err)
	}
}
