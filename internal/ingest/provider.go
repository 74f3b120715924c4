package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	WorkoutsReceived  int `json:"workouts_received"`
	WorkoutsInserted  int `json:"workouts_inserted"`
	ExercisesReceived int `json:"exercises_received"`

	Message string `json:"message,omitempty"`
}

// NoWorkoutsMessage is reported when a document decodes but contains no
// recognisable workout.
const NoWorkoutsMessage = "No workout data found. Make sure the document contains day sections with exercises written as \"<name> x <reps>\"."
