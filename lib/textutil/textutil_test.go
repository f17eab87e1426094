package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "office(main)", NormalizeName("  Office (Main)\n"))
	require.Equal(t, "homenetwork", NormalizeName("Home\tNetwork"))
	require.Equal(t, "", NormalizeName(" \n "))
}
