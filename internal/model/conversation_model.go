package model

import (
	"time"

	"owlynn-be/pkg/store"

	"gorm.io/datatypes"
)

type Conversation struct {
	Id        int64                               `gorm:"primaryKey;autoIncrement"`
	SessionId string                              `gorm:"type:varchar(255);not null;index"`
	Timestamp time.Time                           `gorm:"not null;index"`
	Messages  datatypes.JSONType[[]store.Message] `gorm:"type:jsonb"`
	Metadata  datatypes.JSONMap                   `gorm:"type:jsonb"`
}

func (Conversation) TableName() string {
	return "conversations"
}
