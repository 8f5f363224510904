// Command ingest-mempool loads a Flashbots mempool-dumpster parquet
// file into a MempoolArchive sqlite database for cmd/replay-mempool.
// Kept close to the teacher's own cmd/ingest-mempool/main.go — same
// ParquetRow shape, same ReadByNumber batch loop, same RLP-decode
// step — retargeted from internal/backtest.MempoolDB to
// internal/store.MempoolArchive and from fmt.Printf/log to zerolog.
package main

import (
	"encoding/hex"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/pulkyeet/arbrito/internal/logging"
	"github.com/pulkyeet/arbrito/internal/store"
)

// ParquetRow matches the structure produced by Flashbots mempool-dumpster.
type ParquetRow struct {
	Timestamp              int64
	Hash                   string
	ChainId                string
	From                   string
	To                     string
	Value                  string
	Nonce                  string
	Gas                    string
	GasPrice               string
	GasTipCap              string
	GasFeeCap              string
	DataSize               int64
	Data4Bytes             string
	Sources                []string
	IncludedAtBlockHeight  int64
	IncludedBlockTimestamp int64
	InclusionDelayMs       int64
	RawTx                  string
}

const batchSize = 1000

func main() {
	parquetFile := flag.String("file", "", "path to a mempool-dumpster parquet file")
	dbPath := flag.String("db", "data/mempool.db", "path to the mempool archive sqlite database")
	flag.Parse()

	logging.Init(logging.ModeFromEnv(), os.Getenv("ARBRITO_LOG_LEVEL"))

	if *parquetFile == "" {
		log.Fatal().Msg("ingest-mempool: -file is required")
	}

	archive, err := store.NewMempoolArchive(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest-mempool: open archive")
	}
	defer archive.Close()

	fr, err := local.NewLocalFileReader(*parquetFile)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest-mempool: open parquet file")
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 4)
	if err != nil {
		log.Fatal().Err(err).Msg("ingest-mempool: create parquet reader")
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	log.Info().Int("rows", numRows).Str("file", *parquetFile).Msg("ingest-mempool: starting")

	start := time.Now()
	totalIngested := 0

	for i := 0; i < numRows; i += batchSize {
		toRead := batchSize
		if i+toRead > numRows {
			toRead = numRows - i
		}

		rawRows, err := pr.ReadByNumber(toRead)
		if err != nil {
			log.Warn().Err(err).Int("offset", i).Msg("ingest-mempool: batch read failed")
			break
		}
		if len(rawRows) == 0 {
			break
		}

		batch := make([]store.ArchivedTx, 0, len(rawRows))
		for _, rawRow := range rawRows {
			row, ok := parquetRow(rawRow)
			if !ok {
				continue
			}
			entry, ok := toArchivedTx(row)
			if !ok {
				continue
			}
			batch = append(batch, entry)
		}

		if len(batch) > 0 {
			if err := archive.BatchInsert(batch); err != nil {
				log.Warn().Err(err).Msg("ingest-mempool: batch insert failed")
				continue
			}
		}

		totalIngested += len(batch)
		if totalIngested%10000 == 0 {
			elapsed := time.Since(start)
			log.Info().Int("ingested", totalIngested).Float64("tx_per_sec", float64(totalIngested)/elapsed.Seconds()).
				Msg("ingest-mempool: progress")
		}
	}

	stats, err := archive.Stats()
	if err != nil {
		log.Error().Err(err).Msg("ingest-mempool: stats")
		return
	}

	log.Info().
		Int("ingested", totalIngested).
		Dur("elapsed", time.Since(start)).
		Int64("total_txs", stats["total_txs"]).
		Int64("blocks_covered", stats["blocks_covered"]).
		Msg("ingest-mempool: complete")
}

func parquetRow(rawRow interface{}) (ParquetRow, bool) {
	if row, ok := rawRow.(ParquetRow); ok {
		return row, true
	}
	if row, ok := rawRow.(*ParquetRow); ok {
		return *row, true
	}
	return ParquetRow{}, false
}

func toArchivedTx(row ParquetRow) (store.ArchivedTx, bool) {
	rawTx, err := hex.DecodeString(strings.TrimPrefix(row.RawTx, "0x"))
	if err != nil {
		return store.ArchivedTx{}, false
	}

	var tx types.Transaction
	if err := rlp.DecodeBytes(rawTx, &tx); err != nil {
		return store.ArchivedTx{}, false
	}

	var to *common.Address
	if t := tx.To(); t != nil {
		to = t
	}

	return store.ArchivedTx{
		Hash:          common.HexToHash(row.Hash),
		RawTx:         rawTx,
		SeenAt:        uint64(row.Timestamp / 1000),
		IncludedBlock: uint64(row.IncludedAtBlockHeight),
		GasPrice:      tx.GasPrice().String(),
		To:            to,
	}, true
}
