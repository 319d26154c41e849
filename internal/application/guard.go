package application

// CanMutate is the ownership check applied before any mutation of an
// owned resource. It takes the owner id rather than a concrete entity
// so the same rule covers anything ownable added later.
func CanMutate(userID, ownerID string) bool {
	return userID != "" && userID == ownerID
}
