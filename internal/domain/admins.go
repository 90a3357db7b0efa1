package domain

import (
	"strconv"
	"strings"
)

// AdminList хранит фиксированный список администраторов бота.
type AdminList struct {
	ids map[int64]struct{}
}

// NewAdminList создаёт список из идентификаторов Telegram. Нулевые и отрицательные id игнорируются.
func NewAdminList(ids ...int64) AdminList {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id > 0 {
			set[id] = struct{}{}
		}
	}
	return AdminList{ids: set}
}

// ParseAdminIDs разбирает строку вида "1, 2,3". Некорректные элементы пропускаются.
func ParseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// IsAdmin сообщает, входит ли пользователь в список.
func (a AdminList) IsAdmin(userID int64) bool {
	if userID <= 0 {
		return false
	}
	_, ok := a.ids[userID]
	return ok
}

// Len возвращает количество администраторов.
func (a AdminList) Len() int {
	return len(a.ids)
}
