package sync

// Reconcile partitions fetched issues into those missing from the database
// (to create) and those with an existing row (to update, carrying the row's
// page id). Pure function: the partition depends only on the index contents.
// Every input issue lands in exactly one of the two results.
func Reconcile(issues []Issue, index RowIndex) (toCreate []Issue, toUpdate []RowUpdate) {
	for _, issue := range issues {
		pageID, exists := index[issue.Number]
		if exists {
			toUpdate = append(toUpdate, RowUpdate{PageID: pageID, Issue: issue})
		} else {
			toCreate = append(toCreate, issue)
		}
	}
	return toCreate, toUpdate
}
