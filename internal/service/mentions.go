package service

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/repository"
)

// Reserved mention tokens expanding to every active holder of a role.
const (
	mentionAllAdmins     = "admin"
	mentionAllModerators = "moder"
)

// mentionResolver turns `@token` occurrences into user ids against the live
// user set. Tokens are maximal runs of word characters with interior spaces;
// resolution tries the longest candidate first, dropping trailing words
// until something matches. Exact username/display-name matches win over
// substring matches, case-insensitively, first match wins.
type mentionResolver struct {
	users repository.UserRepository
}

func newMentionResolver(users repository.UserRepository) *mentionResolver {
	return &mentionResolver{users: users}
}

func (r *mentionResolver) Extract(ctx context.Context, content string) ([]string, error) {
	tokens := mentionTokens(content)
	if len(tokens) == 0 {
		return nil, nil
	}

	all, err := r.users.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]models.User, 0, len(all))
	for _, user := range all {
		if !user.Deleted {
			active = append(active, user)
		}
	}
	// Stable resolution order regardless of store iteration order.
	sort.Slice(active, func(i, j int) bool {
		return active[i].Username < active[j].Username
	})

	var resolved []string
	for _, token := range tokens {
		resolved = append(resolved, r.resolveToken(token, active)...)
	}
	return resolved, nil
}

func (r *mentionResolver) resolveToken(token string, active []models.User) []string {
	lowered := strings.ToLower(token)

	switch firstWord(lowered) {
	case mentionAllAdmins:
		return usersWithRole(active, models.RoleAdmin)
	case mentionAllModerators:
		return usersWithRole(active, models.RoleModerator)
	}

	words := strings.Split(lowered, " ")
	for end := len(words); end >= 1; end-- {
		candidate := strings.Join(words[:end], " ")
		if id := matchUser(candidate, active); id != "" {
			return []string{id}
		}
	}
	return nil
}

func matchUser(candidate string, active []models.User) string {
	for _, user := range active {
		if strings.EqualFold(user.Username, candidate) || strings.EqualFold(user.DisplayName, candidate) {
			return user.ID
		}
	}
	for _, user := range active {
		if strings.Contains(strings.ToLower(user.Username), candidate) ||
			strings.Contains(strings.ToLower(user.DisplayName), candidate) {
			return user.ID
		}
	}
	return ""
}

func usersWithRole(active []models.User, role models.Role) []string {
	var ids []string
	for _, user := range active {
		if user.Role == role {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func firstWord(token string) string {
	if i := strings.IndexByte(token, ' '); i >= 0 {
		return token[:i]
	}
	return token
}

// mentionTokens scans for `@` followed by a maximal run of word characters
// and interior single spaces, terminated by punctuation or end of input.
func mentionTokens(content string) []string {
	var tokens []string

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '@' {
			continue
		}

		j := i + 1
		lastWordEnd := j
		for j < len(runes) {
			switch {
			case isWordRune(runes[j]):
				j++
				lastWordEnd = j
			case runes[j] == ' ' && lastWordEnd == j && j+1 < len(runes) && isWordRune(runes[j+1]):
				// Interior space between words.
				j++
			default:
				j = len(runes)
			}
		}

		if lastWordEnd > i+1 {
			tokens = append(tokens, string(runes[i+1:lastWordEnd]))
		}
		i = lastWordEnd - 1
	}

	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
