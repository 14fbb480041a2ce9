// Package keras reads enough of a saved Keras model to describe it.
//
// Three on-disk layouts are recognised:
//   - Keras 3 archives (.keras): a zip holding config.json, metadata.json
//     and model.weights.h5. The layer topology is decoded from config.json.
//   - Legacy HDF5 files (.h5): the model_config attribute is located in the
//     file and decoded on a best-effort basis.
//   - SavedModel directories: detected only; no topology is decoded.
//
// Weights are never read. Loading and re-serializing the model for
// TensorFlow.js is left to the tensorflowjs converter.
package keras
