package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/llm"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
	"github.com/joseph-ayodele/contract-tracker/internal/repository"
	"github.com/joseph-ayodele/contract-tracker/internal/testutil"
	"github.com/joseph-ayodele/contract-tracker/internal/testutil/llmstub"
	"github.com/joseph-ayodele/contract-tracker/internal/upload"
)

var contractPages = []string{
	"용역계약서 계약명: 스마트 물류관리 시스템 구축 용역 착수일: 2024년 3월 1일 종료일: 2024년 12월 31일 계약금액: 일금 일억이천만원정",
	"추진일정 | 1단계 분석설계 2024-03-01 ~ 2024-04-30 | 2단계 개발 2024-05-01 ~ 2024-09-30 | 3단계 시험 및 검수 2024-10-01 ~ 2024-12-31",
	"제7조 지체상금 계약상대자는 납품기한 내에 납품하지 못한 경우 지체일수마다 계약금액의 1천분의 1을 지체상금으로 납부한다",
}

const scheduleReply = `{
  "contract_schedule": {
    "contract_name": "스마트 물류관리 시스템 구축 용역",
    "contract_start_date": "2024-03-01",
    "contract_end_date": "2024-12-31",
    "schedules": [
      {"phase": "1단계 분석설계", "schedule_type": "설계", "start_date": "2024-03-01", "end_date": "2024-04-30"},
      {"phase": "2단계 개발", "schedule_type": "개발", "start_date": "2024-05-01", "end_date": "2024-09-30"}
    ]
  },
  "task_list": [
    {"task_id": 1, "task_name": "요구사항 정의", "phase": "1단계 분석설계", "due_date": "2024-03-31", "priority": "높음", "status": "대기"}
  ],
  "raw_text": "모델이 옮겨 적은 원문"
}`

type harness struct {
	proc      *Processor
	gen       *llmstub.Generator
	jobs      repository.ExtractJobRepository
	uploadDir string
}

func newHarness(t *testing.T, reply string, opts parse.Options) *harness {
	t.Helper()
	gen := &llmstub.Generator{Reply: reply}
	registry := parse.NewRegistry(opts, nil)
	uploadDir := t.TempDir()
	uploads := upload.NewService(upload.Config{Dir: uploadDir, MaxFileSize: 50 << 20}, registry, nil)

	db, err := repository.Open(context.Background(), repository.Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "jobs.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	jobs := repository.NewExtractJobRepository(db, nil)

	orch := llm.NewOrchestrator(gen, llm.DefaultOrchestratorConfig(), nil)
	proc := NewProcessor(nil, uploads, NewParseStage(registry, nil), NewExtractStage(orch, nil))
	proc.Jobs = jobs
	proc.ModelName = gen.Model()
	return &harness{proc: proc, gen: gen, jobs: jobs, uploadDir: uploadDir}
}

func (h *harness) assertUploadsEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func (h *harness) job(t *testing.T, res entity.ExtractionResult) *entity.ExtractJob {
	t.Helper()
	id, err := uuid.Parse(res.JobID)
	require.NoError(t, err)
	job, err := h.jobs.Get(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestProcessUpload_TextPDF(t *testing.T) {
	h := newHarness(t, scheduleReply, parse.Options{})
	pdf := testutil.BuildPDF(contractPages...)

	res, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader(pdf), "물류시스템_계약서.pdf")
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.NotNil(t, res.ContractSchedule)
	assert.Equal(t, "2024-03-01", *res.ContractSchedule.ContractStartDate)
	require.Len(t, res.TaskList, 1)
	assert.Equal(t, constants.PriorityHigh, res.TaskList[0].Priority)

	require.NotNil(t, res.RawText)
	assert.Contains(t, *res.RawText, "--- 페이지 1 ---")
	assert.Contains(t, *res.RawText, "착수일")
	assert.NotContains(t, *res.RawText, "모델이 옮겨 적은 원문")
	require.NotNil(t, res.RawTextPreview)
	assert.LessOrEqual(t, utf8.RuneCountInString(*res.RawTextPreview), entity.RawTextPreviewRunes)

	req := h.gen.Last()
	assert.Empty(t, llmstub.ImageParts(req), "text layer is enough; no images sent")

	job := h.job(t, res)
	assert.Equal(t, constants.JobStatusSucceeded, job.Status)
	assert.Equal(t, constants.FormatPDF, job.Format)
	assert.False(t, job.UsedImages)
	assert.Equal(t, "stub-model", *job.ModelName)

	h.assertUploadsEmpty(t)
}

func TestProcessUpload_ScannedPDFUsesImages(t *testing.T) {
	runner := &testutil.FakePdftoppm{Render: func(int, int) ([]byte, error) {
		return testutil.EncodePNG(testutil.Gradient(120, 160)), nil
	}}
	h := newHarness(t, scheduleReply, parse.Options{Runner: runner})
	pdf := testutil.BuildPDF("", "")

	res, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader(pdf), "scan.pdf")
	require.NoError(t, err)

	images := llmstub.ImageParts(h.gen.Last())
	assert.Len(t, images, 2)
	for _, p := range images {
		assert.Equal(t, "image/png", p.Image.MIMEType)
	}
	require.NotNil(t, res.RawText)
	assert.Equal(t, "모델이 옮겨 적은 원문", *res.RawText)

	job := h.job(t, res)
	assert.True(t, job.UsedImages)
	assert.Equal(t, 2, job.ImageCount)
	h.assertUploadsEmpty(t)
}

func TestProcessUpload_LargeJPEGIsDownscaled(t *testing.T) {
	opts := parse.Options{Image: parse.ImageConfig{MaxBytes: 1 << 20, MaxDimension: 2048}}
	h := newHarness(t, scheduleReply, opts)
	jpg := testutil.EncodeJPEG(testutil.Noise(2400, 1200, 7))
	require.Greater(t, len(jpg), 1<<20)

	res, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader(jpg), "사진.jpg")
	require.NoError(t, err)
	assert.True(t, res.Success)

	images := llmstub.ImageParts(h.gen.Last())
	require.Len(t, images, 1)
	img := images[0].Image
	assert.Equal(t, "image/png", img.MIMEType)
	assert.LessOrEqual(t, len(img.Data), 1<<20)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.LessOrEqual(t, max(cfg.Width, cfg.Height), 2048)
}

func TestProcessUpload_Rejections(t *testing.T) {
	h := newHarness(t, scheduleReply, parse.Options{})

	res, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader([]byte("plain")), "memo.txt")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)

	_, err = h.proc.ProcessUpload(context.Background(), bytes.NewReader([]byte("not a pdf")), "fake.pdf")
	assert.ErrorIs(t, err, common.ErrFormatMismatch)

	jobs, err := h.jobs.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected uploads never start a job")
	h.assertUploadsEmpty(t)
}

func TestProcessUpload_ExtractionFailureIsRecorded(t *testing.T) {
	h := newHarness(t, "not json", parse.Options{})
	docx := testutil.BuildDOCX(testutil.Para("제1조 목적 본 계약은 시스템 구축에 관한 사항을 정한다"))

	res, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader(docx), "계약.docx")
	assert.ErrorIs(t, err, common.ErrExtractionFailure)
	assert.False(t, res.Success)

	jobs, err := h.jobs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, constants.JobStatusFailed, jobs[0].Status)
	assert.Equal(t, "EXTRACTION_FAILURE", *jobs[0].ErrorCode)
	h.assertUploadsEmpty(t)
}

func TestProcessUpload_CorruptDocument(t *testing.T) {
	h := newHarness(t, scheduleReply, parse.Options{})
	broken := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 64)...)

	_, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader(broken), "broken.docx")
	assert.ErrorIs(t, err, common.ErrCorruptDocument)
	assert.Empty(t, h.gen.Requests, "model is never called for unreadable files")
}

type failingArchive struct{ calls int }

func (f *failingArchive) Store(context.Context, string, string) (string, string, error) {
	f.calls++
	return "", "", errors.New("minio unavailable")
}

func TestProcessUpload_ArchiveFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(t, scheduleReply, parse.Options{})
	archive := &failingArchive{}
	h.proc.Archive = archive

	res, err := h.proc.ProcessUpload(context.Background(), bytes.NewReader(testutil.BuildPDF(contractPages...)), "a.pdf")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, archive.calls)
}

func TestProcessFile_LeavesSourceInPlace(t *testing.T) {
	h := newHarness(t, scheduleReply, parse.Options{})
	path := filepath.Join(t.TempDir(), "계약서.hwpx")
	section := `<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section"><hp:p xmlns:hp="x"><hp:t>용역 계약서 착수일 2024-03-01</hp:t></hp:p></hs:sec>`
	require.NoError(t, os.WriteFile(path, testutil.BuildHWPX(map[string]string{"Contents/section0.xml": section}), 0o600))

	res, err := h.proc.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.FileExists(t, path)

	job := h.job(t, res)
	assert.Equal(t, "계약서.hwpx", job.FileName)
	assert.Equal(t, constants.FormatHWP, job.Format)
}

func TestJobID(t *testing.T) {
	id := uuid.New()
	got, err := JobID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = JobID("nope")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
