package services

import (
	"sort"
	"time"

	"github.com/arenastats/scoring-system/models"
	"github.com/arenastats/scoring-system/scoring"
)

// placedMatch — место команды в одном матче с временем матча
// (для окна последних размещений).
type placedMatch struct {
	at        time.Time
	placement int
}

// aggregateEntries сворачивает строки результатов завершённых матчей в
// позиции таблицы лидеров. Команды без сыгранных матчей получают нули.
// Второе возвращаемое значение — размещения по командам для окна
// последней формы.
func aggregateEntries(teams []*models.Team, results []*models.MatchResult) ([]models.LeaderboardEntry, map[int][]placedMatch) {
	entries := make([]models.LeaderboardEntry, 0, len(teams))
	byTeam := make(map[int]*models.LeaderboardEntry, len(teams))
	placementSums := make(map[int]int, len(teams))
	placements := make(map[int][]placedMatch)

	for _, t := range teams {
		pp := 0.0
		entries = append(entries, models.LeaderboardEntry{
			TeamID:          t.ID,
			TeamName:        t.Name,
			TeamTag:         t.Tag,
			TeamLogo:        t.LogoURL,
			PlacementPoints: &pp,
		})
	}
	for i := range entries {
		byTeam[entries[i].TeamID] = &entries[i]
	}

	for _, r := range results {
		e, ok := byTeam[r.TeamID]
		if !ok {
			// Результат команды вне скоупа (удалена или чужой турнир) — пропускаем.
			continue
		}
		e.TotalPoints = scoring.Round2(e.TotalPoints + r.TotalPoints)
		e.TotalKills += r.Kills
		*e.PlacementPoints = scoring.Round2(*e.PlacementPoints + r.PlacementPoints)
		e.MatchesPlayed++
		placementSums[r.TeamID] += r.Placement
		if r.Placement == 1 {
			e.Wins++
		}
		if r.Placement <= 5 {
			e.Top5s++
		}
		if r.TotalPoints > e.BestMatchPoints {
			e.BestMatchPoints = r.TotalPoints
		}
		at := time.Time{}
		if r.Match != nil {
			at = r.Match.ScheduledAt
		}
		placements[r.TeamID] = append(placements[r.TeamID], placedMatch{at: at, placement: r.Placement})
	}

	for i := range entries {
		e := &entries[i]
		if e.MatchesPlayed > 0 {
			e.AvgPlacement = scoring.Round2(float64(placementSums[e.TeamID]) / float64(e.MatchesPlayed))
		}
	}
	return entries, placements
}

// compareByCriterion сравнивает две позиции по одному критерию тай-брейка.
// Возвращает <0, если a выше b, >0 — если ниже, 0 — равны или критерий
// неизвестен (неизвестные имена пропускаются, см. DESIGN.md).
func compareByCriterion(a, b *models.LeaderboardEntry, criterion string) int {
	switch criterion {
	case models.TieBreakerKills:
		return b.TotalKills - a.TotalKills
	case models.TieBreakerWins:
		return b.Wins - a.Wins
	case models.TieBreakerBestMatch:
		return compareFloatDesc(a.BestMatchPoints, b.BestMatchPoints)
	case models.TieBreakerPlacementPoints:
		return compareFloatDesc(derefFloat(a.PlacementPoints), derefFloat(b.PlacementPoints))
	case models.TieBreakerAvgPlacement:
		// Меньшее среднее место — выше. Команды без матчей (0) — ниже всех.
		av, bv := a.AvgPlacement, b.AvgPlacement
		if av == 0 && bv == 0 {
			return 0
		}
		if av == 0 {
			return 1
		}
		if bv == 0 {
			return -1
		}
		return compareFloatDesc(bv, av)
	default:
		return 0
	}
}

// sortEntries сортирует позиции: очки по убыванию, затем цепочка
// критериев тай-брейка ruleset'а, затем киллы по убыванию и id команды
// по возрастанию для детерминизма.
func sortEntries(entries []models.LeaderboardEntry, criteria models.TieBreakers) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if c := compareFloatDesc(a.TotalPoints, b.TotalPoints); c != 0 {
			return c < 0
		}
		for _, criterion := range criteria {
			if c := compareByCriterion(a, b, criterion); c != 0 {
				return c < 0
			}
		}
		if a.TotalKills != b.TotalKills {
			return a.TotalKills > b.TotalKills
		}
		return a.TeamID < b.TeamID
	})
}

// assignRanks присваивает плотные последовательные ранги: равные по всем
// критериям команды получают соседние, а не одинаковые номера.
func assignRanks(entries []models.LeaderboardEntry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// buildKillLeaders собирает топ-5 игроков по результатам, в которых они
// названы лучшим игроком матча: сортировка по числу MVP, затем по киллам.
func buildKillLeaders(results []*models.MatchResult) []models.KillLeader {
	byName := make(map[string]*models.KillLeader)
	order := make([]string, 0)
	for _, r := range results {
		if r.TopPlayer == nil || *r.TopPlayer == "" {
			continue
		}
		name := *r.TopPlayer
		leader, ok := byName[name]
		if !ok {
			leader = &models.KillLeader{PlayerName: name}
			byName[name] = leader
			order = append(order, name)
		}
		leader.MVPCount++
		leader.TotalKills += r.Kills
	}

	leaders := make([]models.KillLeader, 0, len(order))
	for _, name := range order {
		leaders = append(leaders, *byName[name])
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].MVPCount != leaders[j].MVPCount {
			return leaders[i].MVPCount > leaders[j].MVPCount
		}
		if leaders[i].TotalKills != leaders[j].TotalKills {
			return leaders[i].TotalKills > leaders[j].TotalKills
		}
		return leaders[i].PlayerName < leaders[j].PlayerName
	})
	if len(leaders) > 5 {
		leaders = leaders[:5]
	}
	return leaders
}

func compareFloatDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
