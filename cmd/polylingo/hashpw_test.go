// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/polylingo/polylingo/internal/auth"
	"github.com/polylingo/polylingo/internal/config"
	"github.com/polylingo/polylingo/pkg/errutil"
)

func hashCommand(input string) (*bytes.Buffer, *config.Config, func() error) {
	cfg := config.Default()
	cfg.Auth.BcryptCost = bcrypt.MinCost

	cmd := NewHashPasswordCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(input))
	return out, cfg, func() error { return runHashPassword(cmd, cfg) }
}

func TestHashPassword_Bcrypt(t *testing.T) {
	out, _, run := hashCommand("secret123\n")
	require.NoError(t, run())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret123")))
}

func TestHashPassword_Argon2id(t *testing.T) {
	out, cfg, run := hashCommand("secret123")
	cfg.Auth.Hasher = auth.AlgorithmArgon2id
	require.NoError(t, run())

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	ok, err := auth.NewArgon2idHasher().Verify("secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_RejectsWeakPassword(t *testing.T) {
	_, _, run := hashCommand("short\n")
	errutil.AssertErrorCode(t, run(), auth.CodeWeakPassword)
}

func TestHashPassword_EmptyInput(t *testing.T) {
	_, _, run := hashCommand("")
	assert.Error(t, run())
}
