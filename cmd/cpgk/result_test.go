package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpgkernel/cpgk/internal/kernel/kernelerr"
)

func TestSuccessRecordFields(t *testing.T) {
	var hash [32]byte
	hash[0] = 0xAB
	lc := kernelerr.NewLifecycle()
	rec := successRecord(7, lc, hash, 12)
	require.Equal(t, "success", rec.Status)
	require.EqualValues(t, 7, rec.EpochID)
	require.Equal(t, "Initialized", rec.Stage)
	require.Equal(t, "ab00000000000000000000000000000000000000000000000000000000000000", rec.CPGHash)
	require.Equal(t, 12, rec.NodeCount)
}

func TestErrorRecordExtractsKernelErrKind(t *testing.T) {
	err := kernelerr.NewHashMismatch("aa", "bb", "cpg.seal")
	lc := kernelerr.NewLifecycle()
	_ = lc.Fail(err.Error())
	rec := errorRecord(3, lc, err)
	require.Equal(t, "error", rec.Status)
	require.Equal(t, "Failed", rec.Stage)
	require.Equal(t, "HashMismatch", rec.ErrorKind)
	require.NotEmpty(t, rec.ErrorDetail)
}

func TestErrorRecordHandlesPlainError(t *testing.T) {
	rec := errorRecord(1, nil, errPlain("boom"))
	require.Equal(t, "Unknown", rec.ErrorKind)
	require.Equal(t, "boom", rec.ErrorDetail)
	require.Empty(t, rec.Stage)
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
