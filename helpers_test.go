package ccc_test

import (
	"crypto/sha1"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func sha1Hex(t *testing.T, name string) string {
	b, err := os.ReadFile(name)
	require.Nil(t, err)
	return fmt.Sprintf("%X", sha1.Sum(b))
}
