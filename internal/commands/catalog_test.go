package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCommand = `---
name: deploy
description: Deploys the current branch
tags: [ops, release]
---

# Deploy

Runs the deployment pipeline.
`

func TestParseFrontMatterExtractsNameAndMetadata(t *testing.T) {
	name, meta, err := parseFrontMatter([]byte(sampleCommand))
	require.NoError(t, err)
	require.Equal(t, "deploy", name)
	require.Equal(t, "Deploys the current branch", meta["description"])
}

func TestParseFrontMatterMissingDelimiter(t *testing.T) {
	_, _, err := parseFrontMatter([]byte("# just a heading\n"))
	require.Error(t, err)
}

func TestParseFrontMatterUnterminatedBlock(t *testing.T) {
	_, _, err := parseFrontMatter([]byte("---\nname: x\n"))
	require.Error(t, err)
}
