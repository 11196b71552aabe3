package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iudanet/gophsync/internal/models"
)

// MinRefLength минимальная длина префикса хэша коммита
const MinRefLength = 4

// shortHash сокращает хэш до 8 символов для вывода
func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}

// parseValue приводит строку из командной строки к типу значения документа:
// целое, дробное, bool или строка
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// findBranch ищет ветку по ID или названию
func findBranch(tree *models.Tree, ref string) (models.Branch, error) {
	if b, ok := tree.Branches.Get(ref); ok {
		return b, nil
	}

	var found []models.Branch
	for _, b := range tree.Branches.Values() {
		if b.Title == ref {
			found = append(found, b)
		}
	}

	switch len(found) {
	case 0:
		return models.Branch{}, fmt.Errorf("%w: branch %q", ErrNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return models.Branch{}, fmt.Errorf("%w: %d branches titled %q", ErrAmbiguous, len(found), ref)
	}
}

// findCommit ищет коммит по префиксу хэша
func findCommit(commits []models.Commit, ref string) (models.Commit, error) {
	if len(ref) < MinRefLength {
		return models.Commit{}, fmt.Errorf("%w: commit %q, use at least %d characters", ErrNotFound, ref, MinRefLength)
	}

	var found []models.Commit
	for _, c := range commits {
		if strings.HasPrefix(c.ID, ref) {
			found = append(found, c)
		}
	}

	switch len(found) {
	case 0:
		return models.Commit{}, fmt.Errorf("%w: commit %q", ErrNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return models.Commit{}, fmt.Errorf("%w: %d commits start with %q", ErrAmbiguous, len(found), ref)
	}
}

// branchTitle возвращает название ветки или ее ID, если ветка неизвестна
func branchTitle(tree *models.Tree, id string) string {
	if b, ok := tree.Branches.Get(id); ok && b.Title != "" {
		return b.Title
	}
	return id
}
