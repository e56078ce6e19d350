package models

import "time"

// Option 投票選項，索引即投票時使用的編號
type Option struct {
	Text      string `json:"text"`
	VoteCount int    `json:"voteCount"`
}

// Poll 表示一道題目
type Poll struct {
	ID              int64     `json:"id"`
	Question        string    `json:"question"`
	Options         []Option  `json:"options"`
	DurationSeconds int       `json:"durationSeconds"` // 僅供客戶端倒數顯示
	CreatedAt       time.Time `json:"createdAt"`
}

// Clone 深拷貝
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	c := *p
	c.Options = make([]Option, len(p.Options))
	copy(c.Options, p.Options)
	return &c
}

// Deadline 名義上的截止時間
func (p *Poll) Deadline() time.Time {
	return p.CreatedAt.Add(time.Duration(p.DurationSeconds) * time.Second)
}

// TotalVotes 所有選項的票數總和
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.VoteCount
	}
	return total
}
