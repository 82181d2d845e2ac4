package mapper

import (
	"owlynn-be/internal/entity"
	"owlynn-be/internal/model"
	"owlynn-be/pkg/store"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}
	messages := c.Messages.Data()
	if messages == nil {
		messages = []store.Message{}
	}
	return &entity.Conversation{
		Id:        c.Id,
		SessionId: c.SessionId,
		Timestamp: c.Timestamp,
		Messages:  messages,
		Metadata:  toMetadata(c.Metadata),
	}
}

func (m *ConversationMapper) ToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}
	return &model.Conversation{
		Id:        c.Id,
		SessionId: c.SessionId,
		Timestamp: c.Timestamp,
		Messages:  datatypes.NewJSONType(c.Messages),
		Metadata:  toJSONMap(c.Metadata),
	}
}

func toMetadata(m datatypes.JSONMap) store.Metadata {
	if m == nil {
		return store.Metadata{}
	}
	return store.Metadata(m)
}

func toJSONMap(m store.Metadata) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}
