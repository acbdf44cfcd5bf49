package server

import "math/rand"

// generateAssignments builds the initial hunt cycle: a uniformly random
// permutation of the players where each one hunts the next, with a unique
// random weapon per edge and a location drawn with replacement. The result
// is a single N-cycle by construction; callers still run validateChain on
// it before persisting anything.
func generateAssignments(players []Player, locations []Location, weapons []Weapon, rng *rand.Rand) ([]Assignment, error) {
	if len(players) < 2 {
		return nil, preconditionError("Se necesitan al menos 2 jugadores (sin contar GameMaster)")
	}
	if len(locations) < 1 {
		return nil, preconditionError("No hay lugares configurados")
	}
	if len(weapons) < len(players) {
		return nil, preconditionError("No hay suficientes armas configuradas")
	}

	shuffled := make([]Player, len(players))
	copy(shuffled, players)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	shuffledWeapons := make([]Weapon, len(weapons))
	copy(shuffledWeapons, weapons)
	rng.Shuffle(len(shuffledWeapons), func(i, j int) {
		shuffledWeapons[i], shuffledWeapons[j] = shuffledWeapons[j], shuffledWeapons[i]
	})

	assignments := make([]Assignment, 0, len(shuffled))
	for i := range shuffled {
		target := shuffled[(i+1)%len(shuffled)]
		assignments = append(assignments, Assignment{
			HunterID: shuffled[i].ID,
			TargetID: target.ID,
			Location: locations[rng.Intn(len(locations))].Name,
			Weapon:   shuffledWeapons[i].Name,
			IsActive: true,
		})
	}
	return assignments, nil
}

// validateChain walks hunter→target from the first edge and reports
// whether the edges form exactly one simple cycle covering every hunter.
func validateChain(assignments []Assignment) bool {
	if len(assignments) < 2 {
		return false
	}
	chain := make(map[int]int, len(assignments))
	for _, a := range assignments {
		if _, dup := chain[a.HunterID]; dup {
			return false
		}
		chain[a.HunterID] = a.TargetID
	}

	start := assignments[0].HunterID
	current := start
	visited := make(map[int]struct{}, len(assignments))
	for range assignments {
		if _, seen := visited[current]; seen {
			return false
		}
		visited[current] = struct{}{}
		next, ok := chain[current]
		if !ok {
			return false
		}
		current = next
	}
	return current == start && len(visited) == len(assignments)
}

// assignSpecialCharacters deals one-shot roles to roughly ratio of the
// players (at least one), rotating through the fixed roster under a random
// permutation. Returns playerID→character.
func assignSpecialCharacters(playerIDs []int, ratio float64, rng *rand.Rand) map[int]SpecialCharacter {
	if len(playerIDs) == 0 {
		return nil
	}
	count := int(float64(len(playerIDs))*ratio + 0.5)
	if count < 1 {
		count = 1
	}
	if count > len(playerIDs) {
		count = len(playerIDs)
	}

	order := make([]int, len(playerIDs))
	copy(order, playerIDs)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	assigned := make(map[int]SpecialCharacter, count)
	for i := 0; i < count; i++ {
		assigned[order[i]] = specialCharacterRoster[i%len(specialCharacterRoster)]
	}
	return assigned
}
