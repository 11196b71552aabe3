package store

import "github.com/iudanet/gophsync/internal/models"

// BranchCommitsBetween возвращает коммиты ветки branchID, расположенные в
// журнале строго между start и end.
//
// Пустой start означает первый коммит журнала, пустой end - последний;
// сами границы в результат не входят. Неизвестный start считается позицией
// перед журналом, неизвестный end - последним коммитом.
func BranchCommitsBetween(commits models.EntityState[models.Commit], branchID, start, end string) []models.Commit {
	from := 1
	if start != "" {
		from = commits.IndexOf(start) + 1
	}

	to := len(commits.IDs) - 1
	if end != "" {
		if i := commits.IndexOf(end); i >= 0 {
			to = i
		}
	}

	result := []models.Commit{}
	for i := from; i < to; i++ {
		c := commits.Entities[commits.IDs[i]]
		if c.Branch == branchID {
			result = append(result, c)
		}
	}
	return result
}

// BranchMergePairs восстанавливает завершенные циклы fork -> merge по журналу коммитов.
//
// Каждый fork открывает пару на ветке коммита. Merge закрывает самую раннюю
// открытую пару этой ветки с тем же целевым branch, начатую на другом head.
// Незакрытые пары отбрасываются.
func BranchMergePairs(commits models.EntityState[models.Commit]) []models.BranchPair {
	var order []string
	pending := make(map[string][]*models.BranchPair)

	for _, c := range commits.Values() {
		if len(c.Forks) == 0 && len(c.Merges) == 0 {
			continue
		}

		if _, ok := pending[c.Branch]; !ok {
			order = append(order, c.Branch)
			pending[c.Branch] = nil
		}

		for _, fork := range c.Forks {
			pending[c.Branch] = append(pending[c.Branch], &models.BranchPair{
				From:  c.Branch,
				To:    fork,
				Start: c.Head,
			})
		}

		for _, merge := range c.Merges {
			for _, pair := range pending[c.Branch] {
				// пара нулевой длины на том же head не закрывается
				if pair.To == merge && pair.End == "" && pair.Start != c.Head {
					pair.End = c.Head
					break
				}
			}
		}
	}

	result := []models.BranchPair{}
	for _, branchID := range order {
		for _, pair := range pending[branchID] {
			if pair.End == "" {
				continue
			}
			pair.FromCommits = BranchCommitsBetween(commits, pair.From, pair.Start, pair.End)
			pair.ToCommits = BranchCommitsBetween(commits, pair.To, pair.Start, pair.End)
			result = append(result, *pair)
		}
	}
	return result
}
