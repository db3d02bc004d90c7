package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ckexporter/internal/atoms"
	"ckexporter/internal/conversation"
)

func TestConversationMetasFromSkipsMissingID(t *testing.T) {
	convs := []*conversation.Conversation{
		{ID: "conv-1", Title: "Alpha", ProjectName: "proj"},
		{ID: "", Title: "dropped"},
	}
	metas := conversationMetasFrom(convs)
	assert.Len(t, metas, 1)
	assert.Equal(t, "conv-1", metas[0].ID)
	assert.Equal(t, "Alpha", metas[0].Title)
	assert.Equal(t, "proj", metas[0].ProjectName)
}

func TestGroupAtomsByConversationSpansMultipleEvidenceConversations(t *testing.T) {
	a := atoms.New(atoms.KindFact, "shared fact")
	a.Evidence = []atoms.Evidence{
		{ConversationID: "conv-1", MessageID: "m1"},
		{ConversationID: "conv-2", MessageID: "m2"},
		{ConversationID: "conv-1", MessageID: "m3"}, // duplicate conv id, same atom
	}
	grouped := groupAtomsByConversation([]atoms.Atom{a})

	assert.Len(t, grouped["conv-1"], 1)
	assert.Len(t, grouped["conv-2"], 1)
}

func TestGroupAtomsByConversationSkipsEmptyConversationID(t *testing.T) {
	a := atoms.New(atoms.KindFact, "no evidence conv id")
	a.Evidence = []atoms.Evidence{{MessageID: "m1"}}
	grouped := groupAtomsByConversation([]atoms.Atom{a})
	assert.Empty(t, grouped)
}
