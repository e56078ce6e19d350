package models

import "strings"

// Role 參與者角色
type Role string

const (
	RoleTeacher Role = "teacher" // 主持人
	RoleStudent Role = "student" // 作答者
)

// ParseRole 解析客戶端自報的角色，無法辨識時一律視為學生
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleTeacher)) {
		return RoleTeacher
	}
	return RoleStudent
}

// Participant 表示一個已加入的連接
type Participant struct {
	ID   string `json:"id"`   // 連接 ID，由傳輸層分配
	Name string `json:"name"` // 自報的顯示名稱，不檢查唯一性
	Role Role   `json:"role"`
}

// RosterEntry 名單上的一筆資料，不含角色
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
