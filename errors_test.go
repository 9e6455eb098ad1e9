package xv6fs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fudanyrd/xv6fs"
)

func TestNewDriverErrorDefaultMessage(t *testing.T) {
	err := xv6fs.NewDriverError(xv6fs.ErrNoSpace)
	require.ErrorIs(t, err, xv6fs.ErrNoSpace)
	require.Equal(t, xv6fs.ErrNoSpace.Error(), err.Error())
}

func TestNewDriverErrorWithMessage(t *testing.T) {
	err := xv6fs.NewDriverErrorWithMessage(xv6fs.ErrNotExist, "missing.txt")
	require.ErrorIs(t, err, xv6fs.ErrNotExist)
	require.Contains(t, err.Error(), "missing.txt")
}

func TestDriverErrorDoesNotMatchUnrelatedErrno(t *testing.T) {
	err := xv6fs.NewDriverError(xv6fs.ErrExist)
	require.False(t, errors.Is(err, xv6fs.ErrNotExist))
}

func TestParseMountOptionsUID(t *testing.T) {
	opts, err := xv6fs.ParseMountOptions(map[string]string{"uid": "42"})
	require.Nil(t, err)
	require.EqualValues(t, 42, opts.UID)
}

func TestParseMountOptionsRejectsUnknownKey(t *testing.T) {
	_, err := xv6fs.ParseMountOptions(map[string]string{"bogus": "1"})
	require.NotNil(t, err)
	require.ErrorIs(t, err, xv6fs.ErrInvalid)
}
