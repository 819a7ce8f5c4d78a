package domain

// Hyperparameters for portrait LoRA training. They are fixed for every user.
const (
	TrainingLearningRate    = 0.00009
	TrainingSteps           = 1000
	TrainingMultiresolution = true
	TrainingSubjectCrop     = true
)

// BatchSize is the number of photos collected before training starts.
const BatchSize = 10

// TriggerToken is the placeholder the generation service swaps for the
// user's subject marker.
const TriggerToken = "[trigger]"

// TrainingInput is the payload submitted to the training service.
type TrainingInput struct {
	ImagesDataURL           string  `json:"images_data_url"`
	LearningRate            float64 `json:"learning_rate"`
	Steps                   int     `json:"steps"`
	MultiresolutionTraining bool    `json:"multiresolution_training"`
	SubjectCrop             bool    `json:"subject_crop"`
}

// NewTrainingInput fills the fixed hyperparameters for datasetRef.
func NewTrainingInput(datasetRef string) TrainingInput {
	return TrainingInput{
		ImagesDataURL:           datasetRef,
		LearningRate:            TrainingLearningRate,
		Steps:                   TrainingSteps,
		MultiresolutionTraining: TrainingMultiresolution,
		SubjectCrop:             TrainingSubjectCrop,
	}
}

// TrainingOutput is the part of the training result the bot consumes.
type TrainingOutput struct {
	DiffusersLoraFile struct {
		URL string `json:"url"`
	} `json:"diffusers_lora_file"`
}

// LoraWeight applies a trained adapter at generation time.
type LoraWeight struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

// GenerationInput is the payload submitted to the generation service.
type GenerationInput struct {
	Prompt string       `json:"prompt"`
	Loras  []LoraWeight `json:"loras"`
}

// GenerationOutput is the part of the generation result the bot consumes.
type GenerationOutput struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}
